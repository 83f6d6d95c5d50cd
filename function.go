package cvserve

import (
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	logger "github.com/sirupsen/logrus"

	"github.com/DigitumDei/cvserve/internal/config"
	"github.com/DigitumDei/cvserve/internal/logging"
)

// FunctionName is the entry point registered with the Functions Framework.
const FunctionName = "ServeCV"

func init() {
	functions.HTTP(FunctionName, ServeCV)
}

var (
	defaultOnce    sync.Once
	defaultHandler http.Handler
)

// ServeCV is the Cloud Functions entry point. The Handler is built from the
// environment on the first request and reused while the instance is warm.
func ServeCV(w http.ResponseWriter, r *http.Request) {
	defaultOnce.Do(func() {
		defaultHandler = newDefaultHandler(config.OSLookup)
	})
	defaultHandler.ServeHTTP(w, r)
}

// newDefaultHandler configures logging and options from lookup. Invalid
// options produce a handler that reports the problem on every request.
func newDefaultHandler(lookup config.LookupFunc) http.Handler {
	level, _ := lookup(config.EnvLogLevel)
	logging.Setup(os.Stdout, level)

	if unknown := config.UnknownEnvVars(os.Environ()); len(unknown) > 0 {
		logger.WithField("vars", unknown).Warn("[config] Ignoring unknown CVSERVE_* environment variables")
	}

	opts, err := config.Load("", lookup)
	if err != nil {
		logger.WithError(err).Error("[config] Invalid service options")
		cfgErr := &config.ConfigError{Key: config.EnvConfigPath, Reason: err, Message: "Error: invalid service configuration: " + err.Error()}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			format := formatHTML
			if r.URL.Query().Has(PDFQueryParam) {
				format = formatPDF
			}
			status, body := errorResponse(cfgErr)
			writeText(w, format, status, body)
		})
	}

	return NewHandler(WithOptions(opts))
}
