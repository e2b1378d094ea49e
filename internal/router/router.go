// Package router wires the HTTP surface of the service: the open login
// route, the token-gated product routes, the uploads file server and the
// trusted-subnet internal stats endpoint. Handlers translate transport
// concerns (JSON and multipart bodies, status codes) into service calls.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vzemtsov/listomat/internal/auth"
	"github.com/vzemtsov/listomat/internal/authenticator"
	"github.com/vzemtsov/listomat/internal/gzippedhttp"
	"github.com/vzemtsov/listomat/internal/ipchecker"
	"github.com/vzemtsov/listomat/internal/logger"
	"github.com/vzemtsov/listomat/internal/models"
	"github.com/vzemtsov/listomat/internal/service"
	"github.com/vzemtsov/listomat/internal/uploader"
)

const maxMultipartMemory = 32 << 20

type listingService interface {
	List(ctx context.Context) ([]models.Product, error)

	Create(
		ctx context.Context,
		userID string,
		form models.ProductForm,
		files []uploader.UploadedFile,
	) (models.Product, error)

	Update(
		ctx context.Context,
		id string,
		form models.ProductForm,
		files []uploader.UploadedFile,
	) (models.Product, error)

	Delete(ctx context.Context, id string) error

	GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error)

	Ping(ctx context.Context) error
}

type identityService interface {
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
}

type handlers struct {
	svc       listingService
	identity  identityService
	ipChecker *ipchecker.IPChecker
	maxImages int
}

// Option customizes the router.
type Option func(*options)

type options struct {
	uploadsDir string
}

// WithUploadsDir mounts a static file server for uploaded images under
// /uploads. Without it the route is absent (the placeholder variants).
func WithUploadsDir(uploadsDir string) Option {
	return func(o *options) {
		o.uploadsDir = uploadsDir
	}
}

// New assembles the chi router with the logging, gzip and authentication
// middleware chains.
func New(
	svc listingService,
	identity identityService,
	tokenAuthenticator authenticator.Authenticator,
	ipChecker *ipchecker.IPChecker,
	maxImages int,
	optionsProto ...Option,
) *chi.Mux {
	opts := &options{}
	for _, protoOption := range optionsProto {
		protoOption(opts)
	}

	h := &handlers{
		svc:       svc,
		identity:  identity,
		ipChecker: ipChecker,
		maxImages: maxImages,
	}

	router := chi.NewRouter()
	router.Use(logger.WithLoggingHTTPMiddleware)
	router.Use(gzippedhttp.UngzipRequest)
	router.Use(gzippedhttp.GzipResponse)

	router.Post(`/login`, h.postLogin)
	router.Get(`/ping`, h.getPing)
	router.Get(`/api/internal/stats`, h.getInternalStats)

	router.Group(func(protected chi.Router) {
		protected.Use(tokenAuthenticator.Authenticate)
		protected.Get(`/products`, h.getProducts)
		protected.Post(`/products`, h.postProduct)
		protected.Put(`/products/{id}`, h.putProduct)
		protected.Delete(`/products/{id}`, h.deleteProduct)
	})

	if opts.uploadsDir != "" {
		router.Handle(
			`/uploads/*`,
			http.StripPrefix("/uploads/", http.FileServer(http.Dir(opts.uploadsDir))),
		)
	}

	return router
}

func (h *handlers) postLogin(response http.ResponseWriter, request *http.Request) {
	credentials, err := getLoginRequest(request)
	if err != nil {
		writeJSONMessage(response, http.StatusBadRequest, "Malformed request")
		return
	}

	result, err := h.identity.Login(request.Context(), credentials.Email, credentials.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeJSONMessage(response, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		logger.Log.Debugln("Error calling the `h.identity.Login()`: ", zap.Error(err))
		writeJSONMessage(response, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(response, http.StatusOK, models.LoginResponse{Token: result.Token})
}

func (h *handlers) getProducts(response http.ResponseWriter, request *http.Request) {
	products, err := h.svc.List(request.Context())
	if err != nil {
		logger.Log.Debugln("Error calling the `h.svc.List()`: ", zap.Error(err))
		writeJSONMessage(response, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(response, http.StatusOK, products)
}

func (h *handlers) postProduct(response http.ResponseWriter, request *http.Request) {
	userID, ok := request.Context().Value(auth.UserIDKey).(string)
	if !ok || userID == "" {
		writeJSONMessage(response, http.StatusForbidden, "Invalid token")
		return
	}

	form, files, err := h.getProductForm(request)
	if err != nil {
		writeJSONMessage(response, http.StatusBadRequest, "Malformed request")
		return
	}

	product, err := h.svc.Create(request.Context(), userID, form, files)
	if err != nil {
		logger.Log.Debugln("Error calling the `h.svc.Create()`: ", zap.Error(err))
		writeJSONMessage(response, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(response, http.StatusOK, models.ProductResponse{
		Message: "Product created",
		Product: product,
	})
}

func (h *handlers) putProduct(response http.ResponseWriter, request *http.Request) {
	form, files, err := h.getProductForm(request)
	if err != nil {
		writeJSONMessage(response, http.StatusBadRequest, "Malformed request")
		return
	}

	product, err := h.svc.Update(request.Context(), chi.URLParam(request, "id"), form, files)
	if errors.Is(err, service.ErrProductNotFound) {
		writeJSONMessage(response, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		logger.Log.Debugln("Error calling the `h.svc.Update()`: ", zap.Error(err))
		writeJSONMessage(response, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(response, http.StatusOK, models.ProductResponse{
		Message: "Product updated",
		Product: product,
	})
}

func (h *handlers) deleteProduct(response http.ResponseWriter, request *http.Request) {
	err := h.svc.Delete(request.Context(), chi.URLParam(request, "id"))
	if errors.Is(err, service.ErrProductNotFound) {
		writeJSONMessage(response, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		logger.Log.Debugln("Error calling the `h.svc.Delete()`: ", zap.Error(err))
		writeJSONMessage(response, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSONMessage(response, http.StatusOK, "Product deleted")
}

func (h *handlers) getPing(response http.ResponseWriter, request *http.Request) {
	if err := h.svc.Ping(request.Context()); err != nil {
		response.WriteHeader(http.StatusInternalServerError)
		return
	}
	response.WriteHeader(http.StatusOK)
}

func (h *handlers) getInternalStats(response http.ResponseWriter, request *http.Request) {
	if h.ipChecker.IsTrustedSubnetEmpty() {
		response.WriteHeader(http.StatusForbidden)
		return
	}

	clientIP, err := h.ipChecker.GetClientIP(request)
	if err != nil || !h.ipChecker.Check(clientIP) {
		response.WriteHeader(http.StatusForbidden)
		return
	}

	stats, err := h.svc.GetInternalStats(request.Context())
	if err != nil {
		logger.Log.Debugln("Error calling the `h.svc.GetInternalStats()`: ", zap.Error(err))
		writeJSONMessage(response, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(response, http.StatusOK, stats)
}

var loginValidator = validator.New()

func getLoginRequest(request *http.Request) (*models.LoginRequest, error) {
	credentials := &models.LoginRequest{}

	if strings.Contains(request.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(request.Body).Decode(credentials); err != nil {
			return nil, err
		}
		return credentials, loginValidator.Struct(credentials)
	}

	if err := request.ParseForm(); err != nil {
		return nil, err
	}
	credentials.Email = request.FormValue("email")
	credentials.Password = request.FormValue("password")

	return credentials, loginValidator.Struct(credentials)
}

// getProductForm reads the product fields and up to maxImages uploaded
// image files out of the request body. A non-multipart body simply yields
// no files.
func (h *handlers) getProductForm(request *http.Request) (models.ProductForm, []uploader.UploadedFile, error) {
	var files []uploader.UploadedFile

	if strings.Contains(request.Header.Get("Content-Type"), "multipart/form-data") {
		if err := request.ParseMultipartForm(maxMultipartMemory); err != nil {
			return models.ProductForm{}, nil, err
		}

		fileHeaders := request.MultipartForm.File["images"]
		if len(fileHeaders) > h.maxImages {
			fileHeaders = fileHeaders[:h.maxImages]
		}

		for _, fileHeader := range fileHeaders {
			file, err := fileHeader.Open()
			if err != nil {
				return models.ProductForm{}, nil, err
			}
			data, err := io.ReadAll(file)
			_ = file.Close()
			if err != nil {
				return models.ProductForm{}, nil, err
			}
			files = append(files, uploader.UploadedFile{
				Name: fileHeader.Filename,
				Data: data,
			})
		}
	} else if err := request.ParseForm(); err != nil {
		return models.ProductForm{}, nil, err
	}

	form := models.ProductForm{
		Name:        request.FormValue("name"),
		Price:       request.FormValue("price"),
		Description: request.FormValue("description"),
		Location:    request.FormValue("location"),
		OwnerName:   request.FormValue("userName"),
		OwnerPhone:  request.FormValue("userPhone"),
	}

	return form, files, nil
}

func writeJSON(response http.ResponseWriter, status int, payload interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	if err := json.NewEncoder(response).Encode(payload); err != nil {
		logger.Log.Debugln("Error calling the `json.NewEncoder().Encode()`: ", zap.Error(err))
	}
}

func writeJSONMessage(response http.ResponseWriter, status int, message string) {
	writeJSON(response, status, models.MessageResponse{Message: message})
}
