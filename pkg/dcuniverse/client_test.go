package dcuniverse

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Adda-Baaj/dcu-client/pkg/httpclient"
)

const (
	testEmail     = "bruce@wayne.example"
	testPassword  = "alfred"
	testDeviceKey = "device-123"
)

// fakeAPI serves the subset of the remote API the client calls.
type fakeAPI struct {
	t            *testing.T
	loginStatus  int
	sessionID    string
	jwt          string
	metadata     string
	rightsStatus int
	rightsBody   string
	manifestBody string
	license      []byte
	licenseCode  int
	gotLicense   []byte
	gotQuery     map[string]string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	return &fakeAPI{
		t:            t,
		loginStatus:  http.StatusCreated,
		sessionID:    "S1",
		jwt:          signedJWT(t, jwt.MapClaims{"is_premium": true}),
		metadata:     `{"series_title":"X","season":1,"season_position":2,"title":"Ep","duration":60,"description":"d","asset_key":"k","extra":"ignored"}`,
		rightsStatus: http.StatusOK,
		rightsBody:   `"abc"`,
		manifestBody: `{"stream_url":"https://cdn/x.mpd"}`,
		license:      []byte{0x01, 0x02},
		licenseCode:  http.StatusOK,
	}
}

func (f *fakeAPI) requireAuth(r *http.Request) {
	if got := r.Header.Get("Authorization"); got != "Token "+f.sessionID {
		f.t.Fatalf("expected authorization header, got %q", got)
	}
	if got := r.Header.Get("X-Consumer-Key"); got != testDeviceKey {
		f.t.Fatalf("expected device key header, got %q", got)
	}
	if got := r.Header.Get("Cookie"); got != "a=b" {
		f.t.Fatalf("expected session cookie, got %q", got)
	}
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			f.t.Fatalf("expected POST login, got %s", r.Method)
		}
		if got := r.Header.Get("X-Consumer-Key"); got != testDeviceKey {
			f.t.Fatalf("expected device key on login, got %q", got)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			f.t.Fatalf("decode login body: %v", err)
		}
		if body["username"] != testEmail || body["password"] != testPassword {
			f.t.Fatalf("unexpected login body %#v", body)
		}
		if f.loginStatus != http.StatusCreated {
			http.Error(w, `{"error":"bad credentials"}`, f.loginStatus)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "a", Value: "b"})
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]string{"session_id": f.sessionID, "jwt": f.jwt},
		})
	})
	mux.HandleFunc("/api/5/episode/", func(w http.ResponseWriter, r *http.Request) {
		f.requireAuth(r)
		if r.URL.Path != "/api/5/episode/42/" || r.URL.Query().Get("trans") != "en" {
			f.t.Fatalf("unexpected metadata url %s", r.URL.String())
		}
		_, _ = w.Write([]byte(f.metadata))
	})
	mux.HandleFunc("/api/5/1/rights/episode/", func(w http.ResponseWriter, r *http.Request) {
		f.requireAuth(r)
		if r.URL.Path != "/api/5/1/rights/episode/42" {
			f.t.Fatalf("unexpected rights url %s", r.URL.String())
		}
		w.WriteHeader(f.rightsStatus)
		_, _ = w.Write([]byte(f.rightsBody))
	})
	mux.HandleFunc("/api/5/1/video_manifest_from_jwt/", func(w http.ResponseWriter, r *http.Request) {
		f.requireAuth(r)
		f.gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			f.gotQuery[k] = r.URL.Query().Get(k)
		}
		_, _ = w.Write([]byte(f.manifestBody))
	})
	mux.HandleFunc("/wvd/modlicense", func(w http.ResponseWriter, r *http.Request) {
		f.requireAuth(r)
		f.gotLicense, _ = io.ReadAll(r.Body)
		w.WriteHeader(f.licenseCode)
		_, _ = w.Write(f.license)
	})
	return mux
}

func (f *fakeAPI) start() *Client {
	srv := httptest.NewServer(f.handler())
	f.t.Cleanup(srv.Close)
	return f.clientFor(srv.URL, httpclient.NewRestyClient(5*time.Second))
}

func (f *fakeAPI) clientFor(baseURL string, transport httpclient.Client) *Client {
	return NewClient(Credentials{
		Email:     testEmail,
		Password:  testPassword,
		DeviceKey: testDeviceKey,
	}, Options{
		BaseURL:    baseURL,
		HTTPClient: transport,
	})
}

func signedJWT(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("not-checked"))
	if err != nil {
		t.Fatalf("sign jwt: %v", err)
	}
	return token
}

func loggedIn(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	client := api.start()
	if _, err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}
	return client
}

func TestLoginComposesSessionHeaders(t *testing.T) {
	api := newFakeAPI(t)
	api.jwt = "J1"
	client := api.start()

	session, err := client.Login(context.Background())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if session.JWT != "J1" || session.Bearer != "S1" {
		t.Fatalf("unexpected session %+v", session)
	}
	want := map[string]string{
		"cookie":         "a=b",
		"authorization":  "Token S1",
		"x-consumer-key": testDeviceKey,
		"User-Agent":     DefaultUserAgent,
	}
	if got := session.Headers(); !reflect.DeepEqual(got, want) {
		t.Fatalf("headers = %#v, want %#v", got, want)
	}
	if !client.Authenticated() {
		t.Fatalf("expected client to be authenticated")
	}
}

func TestLoginThroughProxy(t *testing.T) {
	api := newFakeAPI(t)
	var proxied []string
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxied = append(proxied, r.URL.String())
		api.handler().ServeHTTP(w, r)
	}))
	defer proxy.Close()

	transport, err := httpclient.NewRestyClientWithOptions(httpclient.Options{
		Timeout:  5 * time.Second,
		ProxyURL: proxy.URL,
	})
	if err != nil {
		t.Fatalf("NewRestyClientWithOptions: %v", err)
	}
	client := api.clientFor("http://dcu.invalid", transport)

	if _, err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login through proxy: %v", err)
	}
	if len(proxied) != 1 || proxied[0] != "http://dcu.invalid/api/users/login" {
		t.Fatalf("expected absolute login url at the proxy, got %v", proxied)
	}
}

func TestLoginFailureLeavesClientUnauthenticated(t *testing.T) {
	api := newFakeAPI(t)
	api.loginStatus = http.StatusUnauthorized
	client := api.start()

	session, err := client.Login(context.Background())
	if session != nil || !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("expected ErrLoginFailed without session, got %v / %v", session, err)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 StatusError, got %v", err)
	}
	if client.Authenticated() {
		t.Fatalf("client must stay unauthenticated")
	}

	if _, err := client.ProductInfo(context.Background(), "42"); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("ProductInfo: expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := client.AcquireLicense(context.Background(), "AA=="); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("AcquireLicense: expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := client.ContentRights(context.Background(), "42"); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("ContentRights: expected ErrNotAuthenticated, got %v", err)
	}
}

func TestProductInfoCombinesMetadataAndManifest(t *testing.T) {
	api := newFakeAPI(t)
	client := loggedIn(t, api)

	info, err := client.ProductInfo(context.Background(), "42")
	if err != nil {
		t.Fatalf("ProductInfo: %v", err)
	}
	want := ProductInfo{
		Name:         "X",
		Season:       "1",
		Episode:      "2",
		EpisodeTitle: "Ep",
		Duration:     "60",
		Description:  "d",
		Synopsis:     "d",
		AssetKey:     "k",
		Manifest:     "https://cdn/x.mpd",
	}
	if info != want {
		t.Fatalf("info = %+v, want %+v", info, want)
	}
	wantQuery := map[string]string{
		"cdn":   "cloudfront",
		"drm":   "widevine",
		"st":    "dash",
		"subs":  "en",
		"token": "abc",
		"trans": "en",
	}
	if !reflect.DeepEqual(api.gotQuery, wantQuery) {
		t.Fatalf("manifest query = %#v, want %#v", api.gotQuery, wantQuery)
	}
}

func TestMetadataKeepsNumbersAsSent(t *testing.T) {
	api := newFakeAPI(t)
	api.metadata = `{"series_title":"X","season":"3","season_position":7,"title":"Ep","duration":2643.5,"description":"d","asset_key":"k"}`
	client := loggedIn(t, api)

	meta, err := client.Metadata(context.Background(), "42")
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if meta.Duration != "2643.5" || meta.Season != "3" || meta.SeasonPosition != "7" {
		t.Fatalf("unexpected numeric fields %+v", meta)
	}

	info, err := client.ProductInfo(context.Background(), "42")
	if err != nil {
		t.Fatalf("ProductInfo: %v", err)
	}
	raw, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("marshal info: %v", err)
	}
	if !strings.Contains(string(raw), `"duration":2643.5`) || !strings.Contains(string(raw), `"episode":7`) {
		t.Fatalf("numbers not passed through unchanged: %s", raw)
	}
}

func TestProductInfoProceedsForNonPremiumAccount(t *testing.T) {
	api := newFakeAPI(t)
	api.jwt = signedJWT(t, jwt.MapClaims{"is_premium": false})
	client := loggedIn(t, api)

	info, err := client.ProductInfo(context.Background(), "42")
	if err != nil {
		t.Fatalf("ProductInfo: %v", err)
	}
	if info.Manifest != "https://cdn/x.mpd" {
		t.Fatalf("unexpected manifest %q", info.Manifest)
	}
}

func TestProductInfoFailsWithoutRights(t *testing.T) {
	api := newFakeAPI(t)
	api.rightsStatus = http.StatusForbidden
	api.rightsBody = "forbidden"
	client := loggedIn(t, api)

	if _, err := client.ProductInfo(context.Background(), "42"); !errors.Is(err, ErrNoRights) {
		t.Fatalf("expected ErrNoRights, got %v", err)
	}
}

func TestManifestURLRequiresStreamURL(t *testing.T) {
	api := newFakeAPI(t)
	api.manifestBody = `{"other":"x"}`
	client := loggedIn(t, api)

	if _, err := client.ManifestURL(context.Background(), "42"); !errors.Is(err, ErrManifestMissing) {
		t.Fatalf("expected ErrManifestMissing, got %v", err)
	}
}

func TestContentRightsStripsQuotes(t *testing.T) {
	client := loggedIn(t, newFakeAPI(t))

	token, err := client.ContentRights(context.Background(), "42")
	if err != nil {
		t.Fatalf("ContentRights: %v", err)
	}
	if token != "abc" {
		t.Fatalf("expected abc, got %q", token)
	}
}

func TestUnquoteTokenRejectsShortBody(t *testing.T) {
	if _, err := unquoteToken(`"`); err == nil {
		t.Fatalf("expected error for one-byte body")
	}
	token, err := unquoteToken(`""`)
	if err != nil || token != "" {
		t.Fatalf("expected empty token, got %q / %v", token, err)
	}
}

func TestAcquireLicensePassesBytesThrough(t *testing.T) {
	api := newFakeAPI(t)
	client := loggedIn(t, api)

	license, err := client.AcquireLicense(context.Background(), "AA==")
	if err != nil {
		t.Fatalf("AcquireLicense: %v", err)
	}
	if !reflect.DeepEqual(api.gotLicense, []byte{0x00}) {
		t.Fatalf("server got %v, want [0]", api.gotLicense)
	}
	if license != "AQI=" {
		t.Fatalf("expected AQI=, got %q", license)
	}
}

func TestAcquireLicenseEncodesErrorBody(t *testing.T) {
	api := newFakeAPI(t)
	api.licenseCode = http.StatusForbidden
	api.license = []byte("no")
	client := loggedIn(t, api)

	license, err := client.AcquireLicense(context.Background(), "AA==")
	if !errors.Is(err, ErrLicenseFailed) {
		t.Fatalf("expected ErrLicenseFailed, got %v", err)
	}
	if license != "bm8=" {
		t.Fatalf("expected encoded error body, got %q", license)
	}
}

func TestAcquireLicenseRejectsInvalidBase64(t *testing.T) {
	api := newFakeAPI(t)
	client := loggedIn(t, api)

	if _, err := client.AcquireLicense(context.Background(), "not base64!"); err == nil {
		t.Fatalf("expected decode error")
	}
	if api.gotLicense != nil {
		t.Fatalf("nothing should reach the license endpoint")
	}
}

func TestMetadataReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"detail":"not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(Credentials{}, Options{BaseURL: srv.URL})
	client.session = &Session{Bearer: "S1", headers: map[string]string{"authorization": "Token S1"}}

	_, err := client.Metadata(context.Background(), "42")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}
	if !strings.Contains(statusErr.Error(), "not found") {
		t.Fatalf("expected body in error, got %q", statusErr.Error())
	}
}

func TestUnverifiedPremiumIgnoresSignature(t *testing.T) {
	session := &Session{JWT: signedJWT(t, jwt.MapClaims{"is_premium": true})}
	if premium, err := session.UnverifiedPremium(); err != nil || !premium {
		t.Fatalf("expected premium, got %v / %v", premium, err)
	}

	session = &Session{JWT: signedJWT(t, jwt.MapClaims{"sub": "u"})}
	if _, err := session.UnverifiedPremium(); err == nil {
		t.Fatalf("expected error for missing claim")
	}

	session = &Session{JWT: "garbage"}
	if _, err := session.UnverifiedPremium(); err == nil {
		t.Fatalf("expected error for malformed token")
	}

	var nilSession *Session
	if _, err := nilSession.UnverifiedPremium(); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestPlainTextStripsMarkup(t *testing.T) {
	if got := plainText("<p>Hello <b>world</b></p>\n  again"); got != "Hello world again" {
		t.Fatalf("plainText = %q", got)
	}
	if got := plainText("   "); got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}

func TestClientStringHidesSecrets(t *testing.T) {
	client := NewClient(Credentials{Email: testEmail, Password: testPassword, DeviceKey: testDeviceKey}, Options{})
	s := client.String()
	if !strings.Contains(s, testEmail) {
		t.Fatalf("expected email in %q", s)
	}
	if strings.Contains(s, testPassword) || strings.Contains(s, testDeviceKey) {
		t.Fatalf("secrets leaked in %q", s)
	}
}
