package forms

import "github.com/roach88/bistro/internal/api"

// MenuItem is the admin menu item form.
type MenuItem struct {
	Name        string  `form:"name" validate:"required"`
	Description string  `form:"description" validate:"required"`
	Price       float64 `form:"price" validate:"gt=0"`
	Category    string  `form:"category" validate:"required,category"`
	Image       string  `form:"image" validate:"omitempty,url"`
}

var menuItemMessages = messages{
	"name.required":        "Name is required",
	"description.required": "Description is required",
	"price.gt":             "Price must be greater than 0",
	"category.required":    "Category is required",
	"category.category":    "Category must be one of Breakfast, Main Dishes, Drinks, Desserts",
	"image.url":            "Image must be a URL",
}

// Validate returns the menu item body to send.
func (f MenuItem) Validate() (api.MenuItemInput, error) {
	f.Name = clean(f.Name)
	f.Description = clean(f.Description)
	f.Category = clean(f.Category)
	f.Image = clean(f.Image)
	if verr := check(f, menuItemMessages); verr != nil {
		return api.MenuItemInput{}, verr
	}
	return api.MenuItemInput{
		Name:        f.Name,
		Description: f.Description,
		Price:       f.Price,
		Category:    f.Category,
		Image:       f.Image,
	}, nil
}

// ValidateMenuItem validates a menu item body built elsewhere (e.g. an
// import file).
func ValidateMenuItem(in api.MenuItemInput) (api.MenuItemInput, error) {
	return MenuItem{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Image:       in.Image,
	}.Validate()
}
