package models

// ProductOwner is the seller contact block embedded into every product.
// It is a snapshot taken at creation time, not a live reference to the
// user record: later profile changes do not propagate into it.
type ProductOwner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Product is a single marketplace listing.
type Product struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Price       string       `json:"price"`
	Description string       `json:"description"`
	Location    string       `json:"location"`
	Images      []string     `json:"images"`
	User        ProductOwner `json:"user"`
}

// ProductForm carries the caller-supplied mutable fields of a product.
// Empty fields mean "keep the existing value" on update and are stored
// as empty strings on create. OwnerName and OwnerPhone are self-reported
// per listing and may differ from the account profile.
type ProductForm struct {
	Name        string
	Price       string
	Description string
	Location    string
	OwnerName   string
	OwnerPhone  string
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type ProductResponse struct {
	Message string  `json:"message"`
	Product Product `json:"product"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type InternalStatsResponse struct {
	Users    int64 `json:"users"`
	Products int64 `json:"products"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)
