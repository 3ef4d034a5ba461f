package domain

// Department is a named organizational unit referenced by employee profiles.
type Department struct {
	ID          int64
	Name        string
	Description string
}
