package retriever

import "strings"

// expansion maps a financial shorthand term to the synonyms appended to
// the query when the term appears.
type expansion struct {
	Key      string
	Synonyms []string
}

// queryExpansions is an ordered table; the first key contained in the
// lowercased query wins and no further entries are considered.
var queryExpansions = []expansion{
	{Key: "cogs", Synonyms: []string{"cost of goods sold", "cost of sales", "COGS", "cost of goods"}},
	{Key: "revenue", Synonyms: []string{"net sales", "sales", "revenue", "total revenue"}},
	{Key: "profit", Synonyms: []string{"net income", "earnings", "profit", "net profit"}},
	{Key: "expenses", Synonyms: []string{"operating expenses", "expenses", "costs"}},
}

// ExpandQuery appends domain synonyms for the first matching shorthand
// term. A query without any known term is returned unchanged.
func ExpandQuery(query string) string {
	lowered := strings.ToLower(query)
	for _, e := range queryExpansions {
		if strings.Contains(lowered, e.Key) {
			return query + " " + strings.Join(e.Synonyms, " ")
		}
	}
	return query
}
