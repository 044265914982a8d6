package handlers

import "net/http"

// Register mounts the API. Reads are public; writes go through requireWriter.
func Register(mux *http.ServeMux, avail *AvailabilityHandler, ivs *IntervalHandler, requireWriter func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /api/v1/availabilities", avail.Get)

	mux.HandleFunc("GET /api/v1/intervals", ivs.List)
	mux.HandleFunc("GET /api/v1/intervals/{id}", ivs.Get)
	mux.Handle("POST /api/v1/intervals", requireWriter(http.HandlerFunc(ivs.Create)))
	mux.Handle("PUT /api/v1/intervals/{id}", requireWriter(http.HandlerFunc(ivs.Update)))
	mux.Handle("DELETE /api/v1/intervals/{id}", requireWriter(http.HandlerFunc(ivs.Delete)))
}
