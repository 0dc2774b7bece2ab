package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faizanprofitpilot/zapsocial/internal/calllog"
	"github.com/faizanprofitpilot/zapsocial/internal/platforms"
	"github.com/faizanprofitpilot/zapsocial/internal/stores/social"
)

type graphCall struct {
	Method string
	Path   string
	Form   url.Values
}

// graphServer records every request it serves before delegating to the
// per-test handler
type graphServer struct {
	*httptest.Server

	mu    sync.Mutex
	calls []graphCall
}

func newGraphServer(t *testing.T, handler http.HandlerFunc) *graphServer {
	t.Helper()

	gs := &graphServer{}
	gs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		form := url.Values{}
		if r.Method == http.MethodGet {
			form = r.URL.Query()
		} else {
			r.ParseForm()
			form = r.PostForm
		}

		gs.mu.Lock()
		gs.calls = append(gs.calls, graphCall{Method: r.Method, Path: r.URL.Path, Form: form})
		gs.mu.Unlock()

		handler(w, r)
	}))
	t.Cleanup(gs.Close)
	return gs
}

func (gs *graphServer) Calls() []graphCall {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	out := make([]graphCall, len(gs.calls))
	copy(out, gs.calls)
	return out
}

func newTestClient(t *testing.T, gs *graphServer, recorder calllog.Recorder) *Client {
	t.Helper()

	client := NewClient("app-id", "app-secret", recorder)
	client.Graph.BaseURL = gs.URL
	client.Graph.HTTPClient = gs.Client()
	return client
}

func quickRetries(t *testing.T) {
	t.Helper()

	origUpload, origFeed := uploadRetry, feedRetry
	uploadRetry.Delay = time.Millisecond
	feedRetry.Delay = time.Millisecond
	t.Cleanup(func() {
		uploadRetry = origUpload
		feedRetry = origFeed
	})
}

func pageAccount() *platforms.Account {
	return &platforms.Account{IntegrationID: 1, UserID: 7, AccountID: "page-1", AccessToken: "page-token"}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeGraphError(w http.ResponseWriter, status, code int, errType, message string) {
	writeJSON(w, status, map[string]any{"error": map[string]any{
		"message": message,
		"type":    errType,
		"code":    code,
	}})
}

func TestPublishText_PostsToFeed(t *testing.T) {
	gs := newGraphServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"id": "page-1_post-1"})
	})
	client := newTestClient(t, gs, nil)

	result, err := client.PublishText(context.Background(), pageAccount(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, "page-1_post-1", result.ExternalID)

	calls := gs.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPost, calls[0].Method)
	assert.Equal(t, "/page-1/feed", calls[0].Path)
	assert.Equal(t, "hello world", calls[0].Form.Get("message"))
	assert.Equal(t, "page-token", calls[0].Form.Get("access_token"))
}

func TestPublishMedia_SinglePhoto(t *testing.T) {
	t.Run("prefers the feed post id", func(t *testing.T) {
		gs := newGraphServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"id": "photo-1", "post_id": "page-1_post-2"})
		})
		client := newTestClient(t, gs, nil)

		result, err := client.PublishMedia(context.Background(), pageAccount(), "caption", []platforms.Media{{URL: "https://cdn.example.com/a.jpg"}})
		require.NoError(t, err)
		assert.Equal(t, "page-1_post-2", result.ExternalID)

		calls := gs.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, "/page-1/photos", calls[0].Path)
		assert.Equal(t, "https://cdn.example.com/a.jpg", calls[0].Form.Get("url"))
		assert.Equal(t, "caption", calls[0].Form.Get("message"))
	})

	t.Run("falls back to the photo id", func(t *testing.T) {
		gs := newGraphServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"id": "photo-1"})
		})
		client := newTestClient(t, gs, nil)

		result, err := client.PublishMedia(context.Background(), pageAccount(), "caption", []platforms.Media{{URL: "https://cdn.example.com/a.jpg"}})
		require.NoError(t, err)
		assert.Equal(t, "photo-1", result.ExternalID)
	})
}

func TestPublishMedia_MultiPhotoAttachesUploads(t *testing.T) {
	var uploads int
	gs := newGraphServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page-1/photos":
			uploads++
			writeJSON(w, http.StatusOK, map[string]string{"id": fmt.Sprintf("photo-%d", uploads)})
		case "/page-1/feed":
			writeJSON(w, http.StatusOK, map[string]string{"id": "page-1_post-3"})
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{})
		}
	})
	client := newTestClient(t, gs, nil)

	media := []platforms.Media{
		{URL: "https://cdn.example.com/a.jpg"},
		{URL: "https://cdn.example.com/b.jpg"},
	}
	result, err := client.PublishMedia(context.Background(), pageAccount(), "album", media)
	require.NoError(t, err)
	assert.Equal(t, "page-1_post-3", result.ExternalID)

	calls := gs.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "false", calls[0].Form.Get("published"))
	assert.Equal(t, "false", calls[1].Form.Get("published"))

	feed := calls[2]
	assert.Equal(t, "/page-1/feed", feed.Path)
	assert.Equal(t, "album", feed.Form.Get("message"))
	assert.Equal(t, `{"media_fbid":"photo-1"}`, feed.Form.Get("attached_media[0]"))
	assert.Equal(t, `{"media_fbid":"photo-2"}`, feed.Form.Get("attached_media[1]"))
}

func TestPublishMedia_UploadRetriesTransientFailure(t *testing.T) {
	quickRetries(t)

	var uploads int
	gs := newGraphServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page-1/photos":
			uploads++
			if uploads == 1 {
				writeGraphError(w, http.StatusBadRequest, 4, "OAuthException", "Application request limit reached")
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"id": fmt.Sprintf("photo-%d", uploads)})
		case "/page-1/feed":
			writeJSON(w, http.StatusOK, map[string]string{"id": "page-1_post-4"})
		}
	})
	client := newTestClient(t, gs, nil)

	media := []platforms.Media{
		{URL: "https://cdn.example.com/a.jpg"},
		{URL: "https://cdn.example.com/b.jpg"},
	}
	result, err := client.PublishMedia(context.Background(), pageAccount(), "album", media)
	require.NoError(t, err)
	assert.Equal(t, "page-1_post-4", result.ExternalID)
	assert.Equal(t, 3, uploads)
}

func TestPublishMedia_TooManyPhotosRejected(t *testing.T) {
	gs := newGraphServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	client := newTestClient(t, gs, nil)

	media := make([]platforms.Media, 11)
	for i := range media {
		media[i] = platforms.Media{URL: fmt.Sprintf("https://cdn.example.com/%d.jpg", i)}
	}
	_, err := client.PublishMedia(context.Background(), pageAccount(), "album", media)
	assert.True(t, platforms.IsValidation(err))
}

func TestReplyToComment(t *testing.T) {
	gs := newGraphServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"id": "reply-1"})
	})
	client := newTestClient(t, gs, nil)

	ref := platforms.CommentRef{ID: "comment-1", PostExternalID: "page-1_post-1"}
	id, err := client.ReplyToComment(context.Background(), pageAccount(), ref, "thanks!")
	require.NoError(t, err)
	assert.Equal(t, "reply-1", id)

	calls := gs.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/comment-1/comments", calls[0].Path)
	assert.Equal(t, "thanks!", calls[0].Form.Get("message"))
}

func TestFetchRecentComments(t *testing.T) {
	gs := newGraphServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{
			{
				"id":           "comment-1",
				"message":      "love this",
				"from":         map[string]string{"id": "user-9", "name": "Sam"},
				"created_time": "2026-08-30T10:15:00+0000",
			},
			{
				"id":           "comment-2",
				"message":      "nice",
				"from":         map[string]string{"id": "user-4", "name": "Alex"},
				"created_time": "not a timestamp",
			},
		}})
	})
	client := newTestClient(t, gs, nil)

	since := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	comments, err := client.FetchRecentComments(context.Background(), pageAccount(), "page-1_post-1", since)
	require.NoError(t, err)
	require.Len(t, comments, 2)

	assert.Equal(t, "comment-1", comments[0].ExternalID)
	assert.Equal(t, "page-1_post-1", comments[0].PostExternalID)
	assert.Equal(t, "user-9", comments[0].AuthorID)
	assert.Equal(t, "Sam", comments[0].AuthorName)
	assert.Equal(t, "love this", comments[0].Text)
	assert.True(t, comments[0].CreatedAt.Equal(time.Date(2026, 8, 30, 10, 15, 0, 0, time.UTC)))

	// Unparseable timestamps fall back to now rather than dropping the comment
	assert.WithinDuration(t, time.Now(), comments[1].CreatedAt, time.Minute)

	calls := gs.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodGet, calls[0].Method)
	assert.Equal(t, "/page-1_post-1/comments", calls[0].Path)
	assert.Equal(t, "stream", calls[0].Form.Get("filter"))
	assert.Equal(t, fmt.Sprintf("%d", since.Unix()), calls[0].Form.Get("since"))
}

func TestRefreshCredential(t *testing.T) {
	gs := newGraphServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "fresh-token",
			"token_type":   "bearer",
			"expires_in":   5184000,
		})
	})
	client := newTestClient(t, gs, nil)

	refreshed, err := client.RefreshCredential(context.Background(), platforms.Credential{AccessToken: "stale-token"})
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", refreshed.AccessToken)
	require.NotNil(t, refreshed.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(5184000*time.Second), *refreshed.ExpiresAt, time.Minute)

	calls := gs.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodGet, calls[0].Method)
	assert.Equal(t, "/oauth/access_token", calls[0].Path)
	assert.Equal(t, "fb_exchange_token", calls[0].Form.Get("grant_type"))
	assert.Equal(t, "app-id", calls[0].Form.Get("client_id"))
	assert.Equal(t, "app-secret", calls[0].Form.Get("client_secret"))
	assert.Equal(t, "stale-token", calls[0].Form.Get("fb_exchange_token"))
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		respond func(w http.ResponseWriter)
		check   func(t *testing.T, err error)
	}{
		{
			name: "expired token",
			respond: func(w http.ResponseWriter) {
				writeGraphError(w, http.StatusBadRequest, 190, "OAuthException", "Error validating access token")
			},
			check: func(t *testing.T, err error) {
				assert.True(t, platforms.IsAuthExpired(err))
				assert.Contains(t, err.Error(), "Token expired, please reconnect your account")
			},
		},
		{
			name: "oauth exception without the auth code",
			respond: func(w http.ResponseWriter) {
				writeGraphError(w, http.StatusBadRequest, 200, "OAuthException", "Permissions error")
			},
			check: func(t *testing.T, err error) {
				assert.True(t, platforms.IsAuthExpired(err))
			},
		},
		{
			name: "app rate limit is transient",
			respond: func(w http.ResponseWriter) {
				writeGraphError(w, http.StatusBadRequest, 4, "OAuthException", "Application request limit reached")
			},
			check: func(t *testing.T, err error) {
				assert.True(t, platforms.IsRetryable(err))
				assert.False(t, platforms.IsAuthExpired(err))
			},
		},
		{
			name: "page throttle is transient",
			respond: func(w http.ResponseWriter) {
				writeGraphError(w, http.StatusBadRequest, 32, "OAuthException", "Page request limit reached")
			},
			check: func(t *testing.T, err error) {
				assert.True(t, platforms.IsRetryable(err))
			},
		},
		{
			name: "server error without an envelope",
			respond: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			check: func(t *testing.T, err error) {
				assert.True(t, platforms.IsRetryable(err))
			},
		},
		{
			name: "client error without an envelope",
			respond: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusBadRequest)
			},
			check: func(t *testing.T, err error) {
				assert.False(t, platforms.IsRetryable(err))
				assert.False(t, platforms.IsAuthExpired(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := newGraphServer(t, func(w http.ResponseWriter, r *http.Request) {
				tt.respond(w)
			})
			client := newTestClient(t, gs, nil)

			_, err := client.PublishText(context.Background(), pageAccount(), "hello")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestNetworkFailureIsTransient(t *testing.T) {
	gs := newGraphServer(t, func(w http.ResponseWriter, r *http.Request) {})
	client := newTestClient(t, gs, nil)
	gs.Close()

	_, err := client.PublishText(context.Background(), pageAccount(), "hello")
	require.Error(t, err)
	assert.True(t, platforms.IsRetryable(err))
}

func TestResolveAccount(t *testing.T) {
	integration := &social.Integration{ID: 3, UserID: 7}
	require.NoError(t, integration.SetMetadata(social.FacebookMetadata{Pages: []social.FacebookPage{
		{ID: "page-1", Name: "Main", AccessToken: "token-1"},
		{ID: "page-2", Name: "Secondary", AccessToken: "token-2"},
	}}))

	client := NewClient("app-id", "app-secret", nil)

	t.Run("defaults to the first page", func(t *testing.T) {
		acct, err := client.ResolveAccount(integration, "")
		require.NoError(t, err)
		assert.Equal(t, "page-1", acct.AccountID)
		assert.Equal(t, "token-1", acct.AccessToken)
		assert.Equal(t, uint(3), acct.IntegrationID)
		assert.Equal(t, uint(7), acct.UserID)
	})

	t.Run("selects the requested page", func(t *testing.T) {
		acct, err := client.ResolveAccount(integration, "page-2")
		require.NoError(t, err)
		assert.Equal(t, "page-2", acct.AccountID)
		assert.Equal(t, "token-2", acct.AccessToken)
	})

	t.Run("rejects an unlinked page", func(t *testing.T) {
		_, err := client.ResolveAccount(integration, "page-99")
		assert.True(t, platforms.IsValidation(err))
	})

	t.Run("rejects missing metadata", func(t *testing.T) {
		bare := &social.Integration{UserID: 7}
		_, err := client.ResolveAccount(bare, "")
		assert.True(t, platforms.IsValidation(err))
	})
}

type capturingRecorder struct {
	mu    sync.Mutex
	calls []calllog.Call
}

func (r *capturingRecorder) Record(call calllog.Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func TestCallsAreRecorded(t *testing.T) {
	var status int
	gs := newGraphServer(t, func(w http.ResponseWriter, r *http.Request) {
		if status == http.StatusOK {
			writeJSON(w, status, map[string]string{"id": "post-1"})
			return
		}
		w.WriteHeader(status)
	})
	recorder := &capturingRecorder{}
	client := newTestClient(t, gs, recorder)

	status = http.StatusOK
	_, err := client.PublishText(context.Background(), pageAccount(), "hello")
	require.NoError(t, err)

	status = http.StatusInternalServerError
	_, err = client.PublishText(context.Background(), pageAccount(), "hello")
	require.Error(t, err)

	require.Len(t, recorder.calls, 2)
	assert.Equal(t, platforms.ProviderFacebook, recorder.calls[0].Provider)
	assert.True(t, recorder.calls[0].Success)
	assert.Equal(t, http.StatusOK, recorder.calls[0].StatusCode)
	assert.False(t, recorder.calls[1].Success)
	assert.Equal(t, http.StatusInternalServerError, recorder.calls[1].StatusCode)
	assert.Error(t, recorder.calls[1].Err)
}
