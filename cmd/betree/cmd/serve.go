package cmd

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"github.com/wkalt/betree/tree"
)

/*
serve builds a demo tree the same way bench/inspect do and exposes its
cache and shape statistics over HTTP, in the style of the teacher's
server/routes package (one handler per route, dispatched through
gorilla/mux rather than the stdlib ServeMux, matching its route-parameter
and query-string handling conventions).
*/

////////////////////////////////////////////////////////////////////////////////

var (
	serveAddr        string
	serveDir         string
	serveMaxNodeSize int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "build a demo tree and serve its stats over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		tr := newDemoTree(serveDir, serveMaxNodeSize, false)
		r := mux.NewRouter()
		r.HandleFunc("/healthz", newHealthHandler()).Methods(http.MethodGet)
		r.HandleFunc("/stats", newStatsHandler(tr)).Methods(http.MethodGet)

		bailf("serve exited: %v", http.ListenAndServe(serveAddr, r))
	},
}

func newHealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
}

type statsResponse struct {
	Hits   int64  `json:"hits"`
	Misses int64  `json:"misses"`
	Shape  string `json:"shape"`
}

func newStatsHandler(tr *tree.Tree[string, []byte]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hits, misses := tr.CacheStats()
		resp := statsResponse{Hits: hits, Misses: misses}
		if r.URL.Query().Get("shape") == "true" {
			shape, err := inspectTree(context.Background(), tr)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			resp.Shape = shape
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", ":8080", "address to listen on")
	serveCmd.Flags().StringVarP(&serveDir, "dir", "d", "",
		"directory to persist nodes under (defaults to an in-memory store)")
	serveCmd.Flags().IntVarP(&serveMaxNodeSize, "max-node-size", "", 1024, "target node capacity")
}
