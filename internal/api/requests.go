// internal/api/requests.go
package api

import (
	"strconv"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/tamzrod/battmon/internal/registry"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("maxbytes", validateMaxBytes)
	}
}

// validateMaxBytes bounds a string by byte length, not rune count: storage
// slots are byte-sized and need one byte for the terminator.
func validateMaxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// WifiConfigRequest is the body of POST /wifi_config. Both keys must be
// present; an empty password selects an open network.
type WifiConfigRequest struct {
	SSID     *string `json:"ssid" binding:"required,maxbytes=31"`
	Password *string `json:"password" binding:"required,maxbytes=63"`
}

// Credentials converts a validated request.
func (r WifiConfigRequest) Credentials() registry.Credentials {
	return registry.Credentials{SSID: *r.SSID, Password: *r.Password}
}
