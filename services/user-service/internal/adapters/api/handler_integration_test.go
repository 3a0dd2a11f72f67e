//go:build integration

package api_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floroz/lelang/pkg/auth"
	"github.com/floroz/lelang/pkg/database"
	"github.com/floroz/lelang/pkg/testhelpers"
	"github.com/floroz/lelang/services/user-service/internal/adapters/api"
	infradb "github.com/floroz/lelang/services/user-service/internal/adapters/database"
	"github.com/floroz/lelang/services/user-service/internal/domain/users"
	"github.com/floroz/lelang/services/user-service/migrations"
)

// setupUserApp wires up the application for testing using a real database connection.
func setupUserApp(t *testing.T) (*httptest.Server, *testhelpers.TestDatabase) {
	t.Helper()
	testDB := testhelpers.NewTestDatabase(t, migrations.FS)

	// Generate ephemeral RSA keys for testing
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privateKey)})
	pubBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})

	signer, err := auth.NewSigner(privPEM, pubPEM, "test")
	require.NoError(t, err)

	svc := users.NewService(
		infradb.NewPostgresUserRepository(testDB.Pool),
		infradb.NewPostgresTokenRepository(testDB.Pool),
		signer,
		database.NewPostgresTransactionManager(testDB.Pool, 5*time.Second),
		zerolog.Nop(),
	)

	server := httptest.NewServer(api.NewRouter(api.NewUserHandler(svc), signer, pubPEM, zerolog.Nop()))
	t.Cleanup(server.Close)
	return server, testDB
}

func call(t *testing.T, method, url, body, token string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type loginBody struct {
	UserID       int64      `json:"user_id"`
	Token        string     `json:"token"`
	RefreshToken string     `json:"refresh_token"`
	User         users.User `json:"user"`
}

func countTokens(t *testing.T, testDB *testhelpers.TestDatabase, userID int64, revoked bool) int {
	t.Helper()
	var n int
	err := testDB.Pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM refresh_tokens WHERE user_id = $1 AND revoked = $2`, userID, revoked).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestUser_Flows(t *testing.T) {
	server, testDB := setupUserApp(t)

	register := func(t *testing.T, email string) users.User {
		var body struct {
			User users.User `json:"user"`
		}
		status := call(t, http.MethodPost, server.URL+"/register",
			`{"name":"Ana","email":"`+email+`","password":"secret1"}`, "", &body)
		require.Equal(t, http.StatusCreated, status)
		return body.User
	}
	login := func(t *testing.T, email string) loginBody {
		var body loginBody
		status := call(t, http.MethodPost, server.URL+"/login",
			`{"email":"`+email+`","password":"secret1"}`, "", &body)
		require.Equal(t, http.StatusOK, status)
		return body
	}

	t.Run("Register_Success", func(t *testing.T) {
		testDB.Truncate(t, "users")
		user := register(t, "ana@example.com")
		assert.NotZero(t, user.ID)
		assert.Nil(t, user.PhotoURL)

		var list []users.User
		require.Equal(t, http.StatusOK, call(t, http.MethodGet, server.URL+"/users", "", "", &list))
		require.Len(t, list, 1)
		assert.Equal(t, "ana@example.com", list[0].Email)
	})

	t.Run("Register_DuplicateEmail", func(t *testing.T) {
		testDB.Truncate(t, "users")
		register(t, "dup@example.com")

		status := call(t, http.MethodPost, server.URL+"/register",
			`{"name":"Imposter","email":"DUP@example.com","password":"other12"}`, "", nil)
		assert.Equal(t, http.StatusConflict, status)
	})

	t.Run("Login_StoresRefreshToken", func(t *testing.T) {
		testDB.Truncate(t, "users")
		user := register(t, "login@example.com")
		session := login(t, "login@example.com")

		assert.Equal(t, user.ID, session.UserID)
		assert.NotEmpty(t, session.Token)
		assert.Equal(t, 1, countTokens(t, testDB, user.ID, false))
	})

	t.Run("Refresh_RotatesAndDetectsReuse", func(t *testing.T) {
		testDB.Truncate(t, "users")
		user := register(t, "rotate@example.com")
		session := login(t, "rotate@example.com")

		var pair struct {
			Token        string `json:"token"`
			RefreshToken string `json:"refresh_token"`
		}
		status := call(t, http.MethodPost, server.URL+"/refresh", `{"refresh_token":"`+session.RefreshToken+`"}`, "", &pair)
		require.Equal(t, http.StatusOK, status)
		assert.NotEqual(t, session.RefreshToken, pair.RefreshToken)
		assert.Equal(t, 1, countTokens(t, testDB, user.ID, true))

		// The old token is revoked; presenting it again kills the new one too.
		status = call(t, http.MethodPost, server.URL+"/refresh", `{"refresh_token":"`+session.RefreshToken+`"}`, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, 0, countTokens(t, testDB, user.ID, false))
	})

	t.Run("Refresh_ConcurrentRotationHasOneWinner", func(t *testing.T) {
		testDB.Truncate(t, "users")
		user := register(t, "race@example.com")
		session := login(t, "race@example.com")
		body := `{"refresh_token":"` + session.RefreshToken + `"}`

		const callers = 4
		statuses := make([]int, callers)
		var wg sync.WaitGroup
		for i := range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				resp, err := http.Post(server.URL+"/refresh", "application/json", bytes.NewBufferString(body))
				if err != nil {
					return
				}
				resp.Body.Close()
				statuses[i] = resp.StatusCode
			}()
		}
		wg.Wait()

		ok := 0
		for _, status := range statuses {
			if status == http.StatusOK {
				ok++
			} else {
				assert.Equal(t, http.StatusUnauthorized, status)
			}
		}
		assert.Equal(t, 1, ok)
		// The losers revoke the winner's fresh token as well.
		assert.Equal(t, 0, countTokens(t, testDB, user.ID, false))
	})

	t.Run("Logout_RevokesToken", func(t *testing.T) {
		testDB.Truncate(t, "users")
		register(t, "logout@example.com")
		session := login(t, "logout@example.com")

		require.Equal(t, http.StatusOK, call(t, http.MethodPost, server.URL+"/logout", `{"refresh_token":"`+session.RefreshToken+`"}`, "", nil))
		status := call(t, http.MethodPost, server.URL+"/refresh", `{"refresh_token":"`+session.RefreshToken+`"}`, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("Update_And_Delete_Self", func(t *testing.T) {
		testDB.Truncate(t, "users")
		user := register(t, "self@example.com")
		other := register(t, "other@example.com")
		session := login(t, "self@example.com")
		url := server.URL + "/users/" + strconv.FormatInt(user.ID, 10)

		var updated struct {
			User users.User `json:"user"`
		}
		status := call(t, http.MethodPut, url, `{"name":"Ana Maria","photo_url":"https://cdn.example.com/a.png"}`, session.Token, &updated)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Ana Maria", updated.User.Name)
		require.NotNil(t, updated.User.PhotoURL)
		assert.Equal(t, "self@example.com", updated.User.Email)

		status = call(t, http.MethodPut, url, `{"email":"other@example.com"}`, session.Token, nil)
		assert.Equal(t, http.StatusConflict, status)

		status = call(t, http.MethodDelete, server.URL+"/users/"+strconv.FormatInt(other.ID, 10), "", session.Token, nil)
		assert.Equal(t, http.StatusForbidden, status)

		require.Equal(t, http.StatusOK, call(t, http.MethodDelete, url, "", session.Token, nil))
		assert.Equal(t, http.StatusNotFound, call(t, http.MethodGet, url, "", "", nil))
		assert.Equal(t, 0, countTokens(t, testDB, user.ID, false))

		status = call(t, http.MethodPost, server.URL+"/refresh", `{"refresh_token":"`+session.RefreshToken+`"}`, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})
}

