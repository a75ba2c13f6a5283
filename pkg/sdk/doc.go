// Package fedsearch is a Go client for the fedsearch HTTP API.
//
// # Federated search
//
//	client, _ := fedsearch.New("http://localhost:8080", fedsearch.WithAPIKey(key))
//	res, _ := client.Search(ctx, fedsearch.SearchRequest{
//	    Query:           "laptop",
//	    SolrCollections: []string{"products", "offers"},
//	})
//	next := fedsearch.SearchRequest{
//	    Query:           "laptop",
//	    SolrCollections: []string{"products", "offers"},
//	    CursorMarks:     res.NextCursorMarks,
//	}
//
// # Bulk upload with progress
//
//	f, _ := os.Open("products.csv")
//	job, _ := client.UploadCSV(ctx, "products", "products.csv", f, fedsearch.CSVOptions{Delimiter: fedsearch.DelimiterSemicolon})
//	progress, _ := client.WatchProgress(ctx, fedsearch.FormatCSV, "products")
//	for p := range progress {
//	    fmt.Println(p.ProgressPercent)
//	}
package fedsearch
