package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromClaims(t *testing.T) {
	cases := []struct {
		name   string
		claims map[string]interface{}
		want   User
		err    bool
	}{
		{"float", map[string]interface{}{"user_id": float64(7), "username": "gator"}, User{ID: 7, Username: "gator"}, false},
		{"number", map[string]interface{}{"user_id": json.Number("8")}, User{ID: 8}, false},
		{"string", map[string]interface{}{"user_id": "9"}, User{ID: 9}, false},
		{"missing", map[string]interface{}{"username": "gator"}, User{}, true},
		{"zero", map[string]interface{}{"user_id": float64(0)}, User{}, true},
		{"bool", map[string]interface{}{"user_id": true}, User{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FromClaims(tc.claims)
			if tc.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestVerifierReadsQueryToken(t *testing.T) {
	ja := New("secret")
	token, err := Token(ja, User{ID: 11, Username: "tot"}, time.Hour)
	require.NoError(t, err)

	var got User
	h := Verifier(ja)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, err = FromContext(r.Context())
		require.NoError(t, err)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/ws?jwt="+token, nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, User{ID: 11, Username: "tot"}, got)
}
