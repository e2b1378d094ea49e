// Package gzippedhttp transparently decompresses gzip-encoded request
// bodies and compresses response bodies for clients that accept gzip.
package gzippedhttp

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
		return w
	},
}

type gzippedBody struct {
	body io.ReadCloser
	zr   *gzip.Reader
}

func newGzippedBody(requestBody io.ReadCloser) (*gzippedBody, error) {
	zr, err := gzip.NewReader(requestBody)
	if err != nil {
		return nil, err
	}

	return &gzippedBody{
		body: requestBody,
		zr:   zr,
	}, nil
}

func (b *gzippedBody) Read(p []byte) (int, error) {
	return b.zr.Read(p)
}

func (b *gzippedBody) Close() error {
	if err := b.body.Close(); err != nil {
		return err
	}
	return b.zr.Close()
}

type gzippingResponseWriter struct {
	w           http.ResponseWriter
	zw          *gzip.Writer
	wroteHeader bool
}

func newGzippingResponseWriter(w http.ResponseWriter) *gzippingResponseWriter {
	zw := gzipWriterPool.Get().(*gzip.Writer)
	zw.Reset(w)
	return &gzippingResponseWriter{
		w:  w,
		zw: zw,
	}
}

func (c *gzippingResponseWriter) Header() http.Header {
	return c.w.Header()
}

// WriteHeader marks the response as gzip-encoded before the status line
// goes out. Every body, error responses included, flows through the gzip
// writer, so the header must be present for every status.
func (c *gzippingResponseWriter) WriteHeader(statusCode int) {
	if c.wroteHeader {
		return
	}
	c.wroteHeader = true
	c.w.Header().Set("Content-Encoding", "gzip")
	c.w.Header().Del("Content-Length")
	c.w.WriteHeader(statusCode)
}

func (c *gzippingResponseWriter) Write(p []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	return c.zw.Write(p)
}

func (c *gzippingResponseWriter) close() error {
	err := c.zw.Close()
	if err != nil {
		return err
	}
	gzipWriterPool.Put(c.zw)
	return nil
}

// GzipResponse compresses the response body when the client's
// Accept-Encoding allows gzip.
func GzipResponse(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		finalResponse := response

		if strings.Contains(request.Header.Get("Accept-Encoding"), "gzip") {
			gzippingResponse := newGzippingResponseWriter(response)
			finalResponse = gzippingResponse
			defer gzippingResponse.close()
		}

		h.ServeHTTP(finalResponse, request)
	}

	return http.HandlerFunc(middleware)
}

// UngzipRequest replaces a gzip-encoded request body with a decompressing
// reader before passing the request down the chain.
func UngzipRequest(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if strings.Contains(request.Header.Get("Content-Encoding"), "gzip") {
			decompressingBody, err := newGzippedBody(request.Body)
			if err != nil {
				response.WriteHeader(http.StatusInternalServerError)
				return
			}
			request.Body = decompressingBody
			defer decompressingBody.Close()
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}
