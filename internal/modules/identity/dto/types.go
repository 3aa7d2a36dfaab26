package dto

// SignInInput carries either a signed token or an explicit identity record.
type SignInInput struct {
	Token string
	UID   string
	Email string
	Name  string
	Photo string
}

type UserOutput struct {
	UID   string
	Email string
	Name  string
	Photo string
}
