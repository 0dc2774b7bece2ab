package social

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestStore opens an isolated in-memory sqlite database per test
func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	store, err := NewStoreWithDB(db)
	require.NoError(t, err)
	return store
}

func testIntegration(userID uint, provider string) *Integration {
	return &Integration{
		UserID:         userID,
		Provider:       provider,
		ProviderUserID: fmt.Sprintf("subject-%d", userID),
		AccessToken:    "token-abc",
	}
}

func TestSaveIntegration_CreateAndUpdate(t *testing.T) {
	store := newTestStore(t)

	integration := testIntegration(1, "facebook")
	require.NoError(t, store.SaveIntegration(integration))
	require.NotZero(t, integration.ID)

	// Saving again updates in place instead of duplicating
	integration.AccessToken = "token-def"
	require.NoError(t, store.SaveIntegration(integration))

	got, err := store.GetIntegration(1, "facebook")
	require.NoError(t, err)
	assert.Equal(t, "token-def", got.AccessToken)
}

func TestIntegrationsForUsers_BulkFetch(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveIntegration(testIntegration(1, "facebook")))
	require.NoError(t, store.SaveIntegration(testIntegration(1, "linkedin")))
	require.NoError(t, store.SaveIntegration(testIntegration(2, "facebook")))
	require.NoError(t, store.SaveIntegration(testIntegration(3, "facebook")))

	integrations, err := store.IntegrationsForUsers([]uint{1, 2}, []string{"facebook", "linkedin"})
	require.NoError(t, err)
	assert.Len(t, integrations, 3)
}

func TestExpiringIntegrations(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	soon := now.Add(48 * time.Hour)
	far := now.Add(30 * 24 * time.Hour)

	withExpiry := testIntegration(1, "facebook")
	withExpiry.TokenExpiresAt = &soon
	require.NoError(t, store.SaveIntegration(withExpiry))

	healthy := testIntegration(2, "facebook")
	healthy.TokenExpiresAt = &far
	require.NoError(t, store.SaveIntegration(healthy))

	noExpiry := testIntegration(3, "facebook")
	require.NoError(t, store.SaveIntegration(noExpiry))

	dead := testIntegration(4, "facebook")
	dead.TokenExpiresAt = &soon
	dead.Expired = true
	require.NoError(t, store.SaveIntegration(dead))

	expiring, err := store.ExpiringIntegrations("facebook", now.Add(7*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, uint(1), expiring[0].UserID)
}

func TestMarkIntegrationExpired_DoesNotTouchTokens(t *testing.T) {
	store := newTestStore(t)

	integration := testIntegration(1, "linkedin")
	require.NoError(t, store.SaveIntegration(integration))
	require.NoError(t, store.MarkIntegrationExpired(integration.ID))

	got, err := store.GetIntegrationByID(integration.ID)
	require.NoError(t, err)
	assert.True(t, got.Expired)
	assert.Equal(t, "token-abc", got.AccessToken)
}

func TestUpdateIntegrationTokens_ClearsFailureFlags(t *testing.T) {
	store := newTestStore(t)

	integration := testIntegration(1, "linkedin")
	integration.AutoRefreshFailed = true
	require.NoError(t, store.SaveIntegration(integration))

	expiry := time.Now().Add(60 * 24 * time.Hour)
	require.NoError(t, store.UpdateIntegrationTokens(integration.ID, "new-token", "new-refresh", &expiry, time.Now()))

	got, err := store.GetIntegrationByID(integration.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-token", got.AccessToken)
	assert.Equal(t, "new-refresh", got.RefreshToken)
	assert.False(t, got.AutoRefreshFailed)
	assert.False(t, got.Expired)
	assert.NotNil(t, got.LastRefreshedAt)
}

func TestMetadataDecode_RejectsMalformed(t *testing.T) {
	integration := testIntegration(1, "instagram")

	integration.Metadata = "{not json"
	_, err := integration.InstagramMetadata()
	assert.Error(t, err)

	// Valid JSON but missing required linkage
	integration.Metadata = `{"business_account_id": "178414"}`
	_, err = integration.InstagramMetadata()
	assert.Error(t, err)

	integration.Metadata = `{"business_account_id": "178414", "linked_page_id": "1234", "page_access_token": "pt"}`
	meta, err := integration.InstagramMetadata()
	require.NoError(t, err)
	assert.Equal(t, "178414", meta.BusinessAccountID)
}

func TestDueScheduledPosts(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	past := now.Add(-10 * time.Minute)
	future := now.Add(10 * time.Minute)

	due := &Post{UserID: 1, Caption: "due", Status: PostStatusScheduled, ScheduledAt: &past}
	due.SetPlatformList([]string{"facebook"})
	require.NoError(t, store.CreatePost(due))

	notYet := &Post{UserID: 1, Caption: "later", Status: PostStatusScheduled, ScheduledAt: &future}
	notYet.SetPlatformList([]string{"facebook"})
	require.NoError(t, store.CreatePost(notYet))

	published := &Post{UserID: 1, Caption: "done", Status: PostStatusPublished, ScheduledAt: &past}
	require.NoError(t, store.CreatePost(published))

	posts, err := store.DueScheduledPosts(now, 50)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "due", posts[0].Caption)
}

func TestSavePostResult_SuccessNeverRegresses(t *testing.T) {
	store := newTestStore(t)

	post := &Post{UserID: 1, Caption: "hello"}
	require.NoError(t, store.CreatePost(post))

	publishedAt := time.Now()
	ok := &PostResult{PostID: post.ID, UserID: 1, Provider: "facebook", Success: true, ExternalID: "fb_1", PublishedAt: &publishedAt}
	require.NoError(t, store.SavePostResult(ok))

	// A later failure for the same platform must not overwrite the success
	fail := &PostResult{PostID: post.ID, UserID: 1, Provider: "facebook", Success: false, ErrorMessage: "boom"}
	require.NoError(t, store.SavePostResult(fail))

	got, err := store.GetPost(post.ID)
	require.NoError(t, err)
	require.Len(t, got.Results, 1)
	assert.True(t, got.Results[0].Success)
	assert.Equal(t, "fb_1", got.Results[0].ExternalID)
}

func TestSavePostResult_FailureCanBecomeSuccess(t *testing.T) {
	store := newTestStore(t)

	post := &Post{UserID: 1, Caption: "hello"}
	require.NoError(t, store.CreatePost(post))

	fail := &PostResult{PostID: post.ID, UserID: 1, Provider: "linkedin", Success: false, ErrorMessage: "rate limited"}
	require.NoError(t, store.SavePostResult(fail))

	publishedAt := time.Now()
	ok := &PostResult{PostID: post.ID, UserID: 1, Provider: "linkedin", Success: true, ExternalID: "urn:li:share:1", PublishedAt: &publishedAt}
	require.NoError(t, store.SavePostResult(ok))

	got, err := store.GetPost(post.ID)
	require.NoError(t, err)
	require.Len(t, got.Results, 1)
	assert.True(t, got.Results[0].Success)
}

func TestSaveCommentIfNew_Idempotent(t *testing.T) {
	store := newTestStore(t)

	comment := &Comment{
		UserID:            1,
		Provider:          "facebook",
		ExternalID:        "c_1001",
		PostExternalID:    "p_1",
		Text:              "love this",
		ExternalCreatedAt: time.Now(),
	}

	created, err := store.SaveCommentIfNew(comment)
	require.NoError(t, err)
	assert.True(t, created)

	// Processing the same external comment id twice never produces two rows
	dup := *comment
	dup.ID = 0
	created, err = store.SaveCommentIfNew(&dup)
	require.NoError(t, err)
	assert.False(t, created)

	var count int64
	require.NoError(t, store.db.Model(&Comment{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestReplyCountSince(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	for i := 0; i < 3; i++ {
		repliedAt := now.Add(-time.Duration(i) * time.Hour)
		comment := &Comment{
			UserID:            1,
			Provider:          "facebook",
			ExternalID:        fmt.Sprintf("c_%d", i),
			PostExternalID:    "p_1",
			Replied:           true,
			RepliedAt:         &repliedAt,
			ExternalCreatedAt: now,
		}
		_, err := store.SaveCommentIfNew(comment)
		require.NoError(t, err)
	}

	// One reply outside the window
	old := now.Add(-30 * time.Hour)
	stale := &Comment{
		UserID: 1, Provider: "facebook", ExternalID: "c_old",
		PostExternalID: "p_1", Replied: true, RepliedAt: &old, ExternalCreatedAt: old,
	}
	_, err := store.SaveCommentIfNew(stale)
	require.NoError(t, err)

	count, err := store.ReplyCountSince(1, "p_1", now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestUnrepliedCommentsSince_OrderedOldestFirst(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	for i, offset := range []time.Duration{-5 * time.Minute, -30 * time.Minute, -15 * time.Minute} {
		comment := &Comment{
			UserID:            1,
			Provider:          "facebook",
			ExternalID:        fmt.Sprintf("c_%d", i),
			ExternalCreatedAt: now.Add(offset),
		}
		_, err := store.SaveCommentIfNew(comment)
		require.NoError(t, err)
	}

	comments, err := store.UnrepliedCommentsSince(1, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, "c_1", comments[0].ExternalID)
	assert.Equal(t, "c_2", comments[1].ExternalID)
	assert.Equal(t, "c_0", comments[2].ExternalID)
}

func TestEnabledReplyPolicies(t *testing.T) {
	store := newTestStore(t)

	on := &ReplyPolicy{UserID: 1, Enabled: true, LookbackMinutes: 60, MaxRepliesPerPost: 5}
	on.SetKeywordList([]string{"spam", "giveaway"})
	require.NoError(t, store.SaveReplyPolicy(on))
	require.NoError(t, store.SaveReplyPolicy(&ReplyPolicy{UserID: 2, Enabled: false}))

	policies, err := store.EnabledReplyPolicies()
	require.NoError(t, err)
	require.Len(t, policies, 1)
	assert.Equal(t, uint(1), policies[0].UserID)
	assert.Equal(t, []string{"spam", "giveaway"}, policies[0].KeywordList())
}

func TestDeleteUserData_Cascades(t *testing.T) {
	store := newTestStore(t)

	integration := testIntegration(7, "facebook")
	require.NoError(t, store.SaveIntegration(integration))

	scheduledAt := time.Now().Add(time.Hour)
	post := &Post{UserID: 7, Caption: "pending", Status: PostStatusScheduled, ScheduledAt: &scheduledAt}
	post.SetPlatformList([]string{"facebook"})
	require.NoError(t, store.CreatePost(post))

	comment := &Comment{UserID: 7, Provider: "facebook", ExternalID: "c_9", ExternalCreatedAt: time.Now()}
	_, err := store.SaveCommentIfNew(comment)
	require.NoError(t, err)

	require.NoError(t, store.DeleteUserData("facebook", "subject-7"))

	_, err = store.GetIntegration(7, "facebook")
	assert.Error(t, err)

	_, err = store.GetPost(post.ID)
	assert.Error(t, err)

	comments, err := store.UnrepliedCommentsSince(7, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestRecordAPICall(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.RecordAPICall(&APICall{
		Provider:   "facebook",
		Endpoint:   "/v19.0/me/feed",
		Method:     "POST",
		StatusCode: 200,
		Success:    true,
		DurationMs: 131,
	}))

	calls, err := store.RecentAPICalls(10)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "/v19.0/me/feed", calls[0].Endpoint)
}
