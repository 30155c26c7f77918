package database

// Page selects one page of a listing. A zero PerPage means no limit.
type Page struct {
	Page    int
	PerPage int
}

// Apply appends LIMIT and OFFSET for p to a query and its args.
func (p Page) Apply(query string, args []any) (string, []any) {
	if p.PerPage <= 0 {
		return query, args
	}
	page := max(p.Page, 1)
	return query + ` LIMIT ? OFFSET ?`, append(args, p.PerPage, (page-1)*p.PerPage)
}
