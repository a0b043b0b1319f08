package main

import (
	"log"
	"net/http"
	"strconv"
	"time"
)

// accessLogWriter proxies http.ResponseWriter and records the
// response status and body size for access logging.
type accessLogWriter struct {
	http.ResponseWriter
	status int
	length int
}

func (w *accessLogWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *accessLogWriter) Write(b []byte) (length int, err error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	length, err = w.ResponseWriter.Write(b)
	w.length += length
	return
}

// AccessLog wraps a handler and writes one access log line per request
// with status, response size and latency.
func AccessLog(handle http.Handler) http.HandlerFunc {
	if handle == nil {
		handle = http.DefaultServeMux
	}
	return func(w http.ResponseWriter, request *http.Request) {
		start := time.Now()
		writer := accessLogWriter{ResponseWriter: w}
		handle.ServeHTTP(&writer, request)
		latency := time.Since(start)

		log.Printf("%s \"%s %s %s\" %d %d %s %dms",
			request.RemoteAddr,
			request.Method,
			request.URL.String(),
			request.Proto,
			writer.status,
			writer.length,
			strconv.Quote(request.Header.Get("User-Agent")),
			latency.Milliseconds())
	}
}
