package api_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/JakeFAU/progress-service/internal/api"
	"github.com/JakeFAU/progress-service/internal/clock/system"
	"github.com/JakeFAU/progress-service/internal/progress"
	"github.com/JakeFAU/progress-service/internal/storage/memory"
)

// ExampleServer_Handler shows the read-then-increment flow a browser client follows.
func ExampleServer_Handler() {
	svc, err := progress.NewService(memory.NewStore(system.New()), progress.ServiceConfig{})
	if err != nil {
		panic(err)
	}
	server, err := api.NewServer(svc, api.Options{})
	if err != nil {
		panic(err)
	}
	h := server.Handler()

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/getProgress", nil))

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"category":"lower","value":2}`)
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/updateProgress", body))

	fmt.Println(rec.Code)
	fmt.Println(strings.Contains(rec.Body.String(), `"lower":2`))
	// Output:
	// 200
	// true
}
