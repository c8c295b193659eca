// ABOUTME: Tests for data migration between storage backends.
// ABOUTME: Copies several users between two SQLite databases and checks nothing is lost.
package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/models"
)

func TestMigrateData(t *testing.T) {
	src := setupTestDB(t)
	dst := setupTestDB(t)
	ctx := context.Background()

	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	seedUser(t, src, alice)
	seedUser(t, src, bob)

	// carol only owns a team link and a subscription.
	invite := models.NewTeamMember(carol, "dana@example.com", models.RoleEditor, "tok-carol")
	if err := src.CreateTeamMember(ctx, invite); err != nil {
		t.Fatalf("CreateTeamMember failed: %v", err)
	}
	if err := src.UpsertTabPermission(ctx, &models.TabPermission{TeamMemberID: invite.ID, Tab: models.TabKPIs, CanView: true}); err != nil {
		t.Fatalf("UpsertTabPermission failed: %v", err)
	}
	customer := "cus_carol"
	if err := src.UpsertSubscription(ctx, &models.Subscription{UserID: carol, StripeCustomerID: &customer, Tier: models.TierElite, Status: "active"}); err != nil {
		t.Fatalf("UpsertSubscription failed: %v", err)
	}
	if err := src.UpsertCalendarConnection(ctx, &models.CalendarConnection{
		UserID: alice, CalendarID: "primary", AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: time.Now(),
	}); err != nil {
		t.Fatalf("UpsertCalendarConnection failed: %v", err)
	}

	users, err := src.UserIDs(ctx)
	if err != nil {
		t.Fatalf("UserIDs failed: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("UserIDs = %d, want 3", len(users))
	}

	summary, err := MigrateData(ctx, src, dst)
	if err != nil {
		t.Fatalf("MigrateData failed: %v", err)
	}
	if summary.Users != 3 {
		t.Errorf("Users = %d, want 3", summary.Users)
	}
	if summary.Records != 22 {
		t.Errorf("Records = %d, want 22", summary.Records)
	}
	if summary.TeamMembers != 1 || summary.Permissions != 1 {
		t.Errorf("team: members=%d permissions=%d", summary.TeamMembers, summary.Permissions)
	}
	if summary.Subscriptions != 1 || summary.Calendars != 1 {
		t.Errorf("billing: subscriptions=%d calendars=%d", summary.Subscriptions, summary.Calendars)
	}

	got, err := dst.GetAllData(ctx, bob)
	if err != nil {
		t.Fatalf("GetAllData failed: %v", err)
	}
	if got.Records() != 11 {
		t.Errorf("bob's records = %d, want 11", got.Records())
	}
	member, err := dst.GetTeamMemberByToken(ctx, "tok-carol")
	if err != nil {
		t.Fatalf("team member not migrated: %v", err)
	}
	if perm, err := dst.GetTabPermission(ctx, member.ID, models.TabKPIs); err != nil || !perm.CanView {
		t.Errorf("tab permission not migrated: %v", err)
	}
	sub, err := dst.GetSubscriptionByCustomer(ctx, "cus_carol")
	if err != nil || sub.Tier != models.TierElite {
		t.Errorf("subscription not migrated: %v", err)
	}
	if _, err := dst.GetCalendarConnection(ctx, alice); err != nil {
		t.Errorf("calendar connection not migrated: %v", err)
	}
}

func TestMigrateDataEmpty(t *testing.T) {
	summary, err := MigrateData(context.Background(), setupTestDB(t), setupTestDB(t))
	if err != nil {
		t.Fatalf("MigrateData failed: %v", err)
	}
	if summary.Users != 0 || summary.Records != 0 {
		t.Errorf("expected empty summary, got %+v", summary)
	}
}
