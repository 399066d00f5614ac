package stubs

import (
	"galerie/internal/models"
)

var Images = models.ImageList{
	Images: []models.ImageRef{
		{Href: "/images/1eaf6ef1-7f2d-4ecc-a8d5-6e8adba7cc0e.png"},
	},
}
