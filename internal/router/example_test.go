package router_test

import (
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/vzemtsov/listomat/internal/auth"
	"github.com/vzemtsov/listomat/internal/db/memorystorage"
	"github.com/vzemtsov/listomat/internal/ipchecker"
	"github.com/vzemtsov/listomat/internal/logger"
	"github.com/vzemtsov/listomat/internal/models"
	"github.com/vzemtsov/listomat/internal/router"
	"github.com/vzemtsov/listomat/internal/service"
	"github.com/vzemtsov/listomat/internal/uploader"
)

// Example walks the happy path of the HTTP surface: a first-time login
// provisions an account and yields a token, which then authorizes
// creating and listing products.
func Example() {
	if err := logger.Init("fatal"); err != nil {
		log.Fatal(err)
	}

	theStorage, err := memorystorage.New()
	if err != nil {
		log.Fatal(err)
	}

	theAuth := auth.New(theStorage, []byte("example_secret"), 2*time.Hour)
	svc := service.New(theStorage, uploader.NewPlaceholderUploader("https://picsum.photos"))
	theIPChecker, err := ipchecker.New("")
	if err != nil {
		log.Fatal(err)
	}

	server := httptest.NewServer(router.New(svc, theAuth, theAuth, theIPChecker, 5))
	defer server.Close()

	response, err := http.PostForm(server.URL+"/login", url.Values{
		"email":    {"seller@example.com"},
		"password": {"pw"},
	})
	if err != nil {
		log.Fatal(err)
	}
	defer response.Body.Close()
	fmt.Println("login:", response.StatusCode)

	var login models.LoginResponse
	var created models.ProductResponse
	_, err = resty.New().R().
		SetResult(&login).
		SetFormData(map[string]string{"email": "seller@example.com", "password": "pw"}).
		Post(server.URL + "/login")
	if err != nil {
		log.Fatal(err)
	}

	createResponse, err := resty.New().R().
		SetAuthToken(login.Token).
		SetFormData(map[string]string{"name": "bicycle", "price": "120"}).
		SetFileReader("images", "bike.jpg", strings.NewReader("image bytes")).
		SetResult(&created).
		Post(server.URL + "/products")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("create:", createResponse.StatusCode())
	fmt.Println("message:", created.Message)
	fmt.Println("images:", len(created.Product.Images))

	// Output:
	// login: 200
	// create: 200
	// message: Product created
	// images: 1
}
