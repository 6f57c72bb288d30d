package response

import (
	"encoding/json"
	"net/http"

	"github.com/agenthive/auth-service/internal/autherr"
)

// SuccessResponse is the success envelope: {"status","httpCode","data"}.
type SuccessResponse struct {
	Status   string `json:"status"`
	HTTPCode int    `json:"httpCode"`
	Data     any    `json:"data,omitempty"`
}

func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SuccessResponse{Status: "Success", HTTPCode: status, Data: data})
}

// AuthError writes the failure envelope with a fresh timestamp and trace id.
// Every authentication failure maps to 401; the code field is the contract.
func AuthError(w http.ResponseWriter, code autherr.Code) {
	AuthErrorResponse(w, autherr.FromCode(code))
}

func AuthErrorResponse(w http.ResponseWriter, resp autherr.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(resp)
}
