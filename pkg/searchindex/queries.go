package searchindex

// Query builders for the two shapes the retrievers use: multi-field fuzzy
// lexical match and k-NN vector search, each optionally scoped by filters.

// MultiMatch builds a fuzzy multi-field text query. Field boosts are expressed
// inline ("title^2").
func MultiMatch(query string, fields []string) M {
	return M{
		"multi_match": M{
			"query":     query,
			"fields":    fields,
			"fuzziness": "AUTO",
		},
	}
}

// BoolQuery combines a required clause with filter clauses. A nil must clause
// produces a pure filter query.
func BoolQuery(must M, filters []M) M {
	b := M{}
	if must != nil {
		b["must"] = []M{must}
	}
	if len(filters) > 0 {
		b["filter"] = filters
	}
	return M{"bool": b}
}

// KNN builds a k-nearest-neighbor vector search body. Filters, when present,
// scope the candidate set before the similarity search.
func KNN(field string, vector []float32, k, numCandidates int, filters []M) M {
	knn := M{
		"field":          field,
		"query_vector":   vector,
		"k":              k,
		"num_candidates": numCandidates,
	}
	if len(filters) > 0 {
		knn["filter"] = M{"bool": M{"filter": filters}}
	}
	return M{"knn": knn}
}

// Term builds an exact-value filter, used for tenant scoping.
func Term(field string, value any) M {
	return M{"term": M{field: value}}
}

// Terms builds a value-set filter.
func Terms(field string, values []string) M {
	return M{"terms": M{field: values}}
}

// Range builds a range filter from the given bound map (gte/lte/lt/gt).
func Range(field string, bounds M) M {
	return M{"range": M{field: bounds}}
}

// Exists filters to documents where the field is populated.
func Exists(field string) M {
	return M{"exists": M{"field": field}}
}

// Should wraps alternatives requiring at least one match.
func Should(clauses ...M) M {
	return M{"bool": M{"should": clauses, "minimum_should_match": 1}}
}
