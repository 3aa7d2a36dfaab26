package dto

type SetInput struct {
	Domain   string
	Category string
}

type LookupOutput struct {
	Category string
	Found    bool
}

type Mapping struct {
	Domain   string
	Category string
}
