package models

import (
	"errors"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnsupportedType = errors.New("unsupported content type")
	ErrTooLarge        = errors.New("upload too large")
)

// ImageRef points at a single stored image.
type ImageRef struct {
	Href string `msgpack:"href" json:"href"`
}

// ImageList is the document returned by the image collection.
type ImageList struct {
	Images []ImageRef `msgpack:"images" json:"images"`
}

func (l *ImageList) MarshalBinary() (data []byte, err error) {
	type alias ImageList
	return msgpack.Marshal((*alias)(l))
}

func (l *ImageList) UnmarshalBinary(data []byte) error {
	type alias ImageList
	return msgpack.Unmarshal(data, (*alias)(l))
}
