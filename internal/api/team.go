// ABOUTME: Handlers for team invitations, sharing permissions, and shared content views.
// ABOUTME: Shared reads and edits check access per item, so item grants and denials beat the tab.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/auth"
	"github.com/harperreed/goalpro/internal/models"
	"github.com/harperreed/goalpro/internal/sharing"
	"github.com/harperreed/goalpro/internal/storage"
)

func (s *Server) listMembers(c *gin.Context) {
	members, err := s.sharing.Members(c.Request.Context(), auth.UserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

type inviteRequest struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role"`
}

func (s *Server) inviteMember(c *gin.Context) {
	var req inviteRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	if !strings.Contains(req.Email, "@") {
		s.fail(c, badRequest("invalid email %q", req.Email))
		return
	}
	if req.Role != "" && !models.IsValidMemberRole(req.Role) {
		s.fail(c, badRequest("invalid role %q", req.Role))
		return
	}
	m, err := s.sharing.Invite(c.Request.Context(), auth.UserID(c), req.Email, models.MemberRole(req.Role))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (s *Server) memberID(c *gin.Context) (uuid.UUID, bool) {
	id, err := parseUUID(c.Param("id"), "member id")
	if err != nil {
		s.fail(c, err)
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) removeMember(c *gin.Context) {
	id, ok := s.memberID(c)
	if !ok {
		return
	}
	if err := s.sharing.Remove(c.Request.Context(), auth.UserID(c), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) revokeMember(c *gin.Context) {
	id, ok := s.memberID(c)
	if !ok {
		return
	}
	if err := s.sharing.Revoke(c.Request.Context(), auth.UserID(c), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type acceptRequest struct {
	Token string `json:"token" binding:"required"`
}

func (s *Server) acceptInvite(c *gin.Context) {
	var req acceptRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	m, err := s.sharing.Accept(c.Request.Context(), req.Token, auth.UserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

type permissionRequest struct {
	CanView bool `json:"can_view"`
	CanEdit bool `json:"can_edit"`
}

func (s *Server) setTabPermission(c *gin.Context) {
	id, ok := s.memberID(c)
	if !ok {
		return
	}
	tab := c.Param("tab")
	if !models.IsValidTab(tab) {
		s.fail(c, badRequest("unknown tab %q", tab))
		return
	}
	var req permissionRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	p, err := s.sharing.SetTabPermission(c.Request.Context(), auth.UserID(c), id, models.Tab(tab), req.CanView, req.CanEdit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) deleteTabPermission(c *gin.Context) {
	id, ok := s.memberID(c)
	if !ok {
		return
	}
	if err := s.sharing.DeleteTabPermission(c.Request.Context(), auth.UserID(c), id, models.Tab(c.Param("tab"))); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) itemTarget(c *gin.Context) (uuid.UUID, models.EntityType, uuid.UUID, bool) {
	id, ok := s.memberID(c)
	if !ok {
		return uuid.Nil, "", uuid.Nil, false
	}
	entityType := c.Param("type")
	if !models.IsValidEntityType(entityType) {
		s.fail(c, badRequest("unknown entity type %q", entityType))
		return uuid.Nil, "", uuid.Nil, false
	}
	entityID, err := parseUUID(c.Param("entityID"), "entity id")
	if err != nil {
		s.fail(c, err)
		return uuid.Nil, "", uuid.Nil, false
	}
	return id, models.EntityType(entityType), entityID, true
}

func (s *Server) setItemPermission(c *gin.Context) {
	id, entityType, entityID, ok := s.itemTarget(c)
	if !ok {
		return
	}
	var req permissionRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	p, err := s.sharing.SetItemPermission(c.Request.Context(), auth.UserID(c), id, entityType, entityID, req.CanView, req.CanEdit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) deleteItemPermission(c *gin.Context) {
	id, entityType, entityID, ok := s.itemTarget(c)
	if !ok {
		return
	}
	if err := s.sharing.DeleteItemPermission(c.Request.Context(), auth.UserID(c), id, entityType, entityID); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) memberPermissions(c *gin.Context) {
	id, ok := s.memberID(c)
	if !ok {
		return
	}
	tabs, items, err := s.sharing.Permissions(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tabs": tabs, "items": items})
}

// sharedEntry is one row of another user's content.
type sharedEntry struct {
	id   uuid.UUID
	item any
}

func (s *Server) sharedTarget(c *gin.Context) (uuid.UUID, models.Tab, bool) {
	ownerID, err := parseUUID(c.Param("ownerID"), "owner id")
	if err != nil {
		s.fail(c, err)
		return uuid.Nil, "", false
	}
	tab := c.Param("tab")
	if !models.IsValidTab(tab) {
		s.fail(c, badRequest("unknown tab %q", tab))
		return uuid.Nil, "", false
	}
	return ownerID, models.Tab(tab), true
}

func (s *Server) sharedList(c *gin.Context) {
	ownerID, tab, ok := s.sharedTarget(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	requester := auth.UserID(c)

	tabAccess, err := s.sharing.Check(ctx, requester, ownerID, tab, "", uuid.Nil)
	if err != nil {
		s.fail(c, err)
		return
	}
	entries, err := s.tabEntries(c, ownerID, tab)
	if err != nil {
		s.fail(c, err)
		return
	}

	entity := models.TabEntity[tab]
	items := make([]any, 0, len(entries))
	for _, e := range entries {
		access, err := s.sharing.Check(ctx, requester, ownerID, tab, entity, e.id)
		if err != nil {
			s.fail(c, err)
			return
		}
		if access.Allows(sharing.AccessView) {
			items = append(items, e.item)
		}
	}
	if !tabAccess.Allows(sharing.AccessView) && len(items) == 0 {
		s.fail(c, sharing.ErrForbidden)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"owner_id": ownerID,
		"tab":      tab,
		"access":   tabAccess.String(),
		"items":    items,
	})
}

func (s *Server) sharedItem(c *gin.Context) {
	ownerID, tab, ok := s.sharedTarget(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	requester := auth.UserID(c)

	entry, err := s.sharedLookup(ctx, requester, ownerID, tab, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	access, err := s.sharing.Check(ctx, requester, ownerID, tab, models.TabEntity[tab], entry.id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !access.Allows(sharing.AccessView) {
		s.fail(c, sharing.ErrForbidden)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": access.String(), "item": entry.item})
}

// sharedUpdate lets a member with edit access change one of the owner's
// visions, power goals or MINs. Other tabs are read-only when shared.
func (s *Server) sharedUpdate(c *gin.Context) {
	ownerID, tab, ok := s.sharedTarget(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	requester := auth.UserID(c)

	entry, err := s.sharedLookup(ctx, requester, ownerID, tab, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.sharing.Require(ctx, requester, ownerID, tab, models.TabEntity[tab], entry.id, sharing.AccessEdit); err != nil {
		s.fail(c, err)
		return
	}

	switch item := entry.item.(type) {
	case *models.Vision:
		var req visionRequest
		if err = bind(c, &req); err == nil {
			if err = req.apply(item); err == nil {
				err = s.store.UpdateVision(ctx, item)
			}
		}
	case *models.PowerGoal:
		var req powerGoalRequest
		if err = bind(c, &req); err == nil {
			if err = req.apply(item); err == nil {
				if err = s.ownedRefs(ctx, ownerID, item.VisionID, nil); err == nil {
					err = s.store.UpdatePowerGoal(ctx, item)
				}
			}
		}
	case *models.MIN:
		var req minRequest
		if err = bind(c, &req); err == nil {
			if err = req.apply(item); err == nil {
				if err = s.ownedRefs(ctx, ownerID, nil, item.PowerGoalID); err == nil {
					err = s.store.UpdateMIN(ctx, item)
				}
			}
		}
	default:
		err = badRequest("tab %q is read-only when shared", tab)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": sharing.AccessEdit.String(), "item": entry.item})
}

// sharedLookup fetches one of the owner's rows. A missing row is reported as
// forbidden to users with no access to the tab so existence is not leaked.
func (s *Server) sharedLookup(ctx context.Context, requester, ownerID uuid.UUID, tab models.Tab, id string) (sharedEntry, error) {
	entry, err := s.tabEntry(ctx, ownerID, tab, id)
	if errors.Is(err, storage.ErrNotFound) {
		tabAccess, checkErr := s.sharing.Check(ctx, requester, ownerID, tab, "", uuid.Nil)
		if checkErr == nil && !tabAccess.Allows(sharing.AccessView) {
			err = sharing.ErrForbidden
		}
	}
	return entry, err
}

// tabEntries lists the owner's rows for a tab.
func (s *Server) tabEntries(c *gin.Context, ownerID uuid.UUID, tab models.Tab) ([]sharedEntry, error) {
	ctx := c.Request.Context()
	var out []sharedEntry
	switch tab {
	case models.TabVisions:
		rows, err := s.store.ListVisions(ctx, ownerID)
		for _, r := range rows {
			out = append(out, sharedEntry{r.ID, r})
		}
		return out, err
	case models.TabGoals:
		rows, err := s.store.ListPowerGoals(ctx, ownerID, storage.PowerGoalFilter{})
		for _, r := range rows {
			out = append(out, sharedEntry{r.ID, r})
		}
		return out, err
	case models.TabMINs:
		rows, err := s.store.ListMINs(ctx, ownerID, storage.MINFilter{IncludeCompleted: true})
		for _, r := range rows {
			out = append(out, sharedEntry{r.ID, r})
		}
		return out, err
	case models.TabTime:
		from, to, err := queryWindow(c, week)
		if err != nil {
			return nil, err
		}
		rows, err := s.store.ListTimeBlocks(ctx, ownerID, from, to)
		for _, r := range rows {
			out = append(out, sharedEntry{r.ID, r})
		}
		return out, err
	case models.TabKPIs:
		rows, err := s.store.ListKPIs(ctx, ownerID)
		for _, r := range rows {
			out = append(out, sharedEntry{r.ID, r})
		}
		return out, err
	case models.TabReviews:
		rows, err := s.store.ListDailyReviews(ctx, ownerID, queryInt(c, "limit", 30))
		for _, r := range rows {
			out = append(out, sharedEntry{r.ID, r})
		}
		return out, err
	case models.TabRoutines:
		rows, err := s.store.ListRoutines(ctx, ownerID)
		for _, r := range rows {
			out = append(out, sharedEntry{r.ID, r})
		}
		return out, err
	case models.TabLeverage:
		rows, err := s.store.ListLeverageItems(ctx, ownerID)
		for _, r := range rows {
			out = append(out, sharedEntry{r.ID, r})
		}
		return out, err
	}
	return nil, badRequest("unknown tab %q", tab)
}

// tabEntry fetches one of the owner's rows. Reviews are addressed by date.
func (s *Server) tabEntry(ctx context.Context, ownerID uuid.UUID, tab models.Tab, id string) (sharedEntry, error) {
	var (
		e   sharedEntry
		err error
	)
	switch tab {
	case models.TabVisions:
		var r *models.Vision
		if r, err = s.store.GetVision(ctx, ownerID, id); err == nil {
			e = sharedEntry{r.ID, r}
		}
	case models.TabGoals:
		var r *models.PowerGoal
		if r, err = s.store.GetPowerGoal(ctx, ownerID, id); err == nil {
			e = sharedEntry{r.ID, r}
		}
	case models.TabMINs:
		var r *models.MIN
		if r, err = s.store.GetMIN(ctx, ownerID, id); err == nil {
			e = sharedEntry{r.ID, r}
		}
	case models.TabTime:
		var r *models.TimeBlock
		if r, err = s.store.GetTimeBlock(ctx, ownerID, id); err == nil {
			e = sharedEntry{r.ID, r}
		}
	case models.TabKPIs:
		var r *models.KPI
		if r, err = s.store.GetKPI(ctx, ownerID, id); err == nil {
			e = sharedEntry{r.ID, r}
		}
	case models.TabReviews:
		day, perr := parseDate(id, "review date")
		if perr != nil {
			return e, perr
		}
		var r *models.DailyReview
		if r, err = s.store.GetDailyReview(ctx, ownerID, day); err == nil {
			e = sharedEntry{r.ID, r}
		}
	case models.TabRoutines:
		var r *models.Routine
		if r, err = s.store.GetRoutine(ctx, ownerID, id); err == nil {
			e = sharedEntry{r.ID, r}
		}
	case models.TabLeverage:
		var r *models.LeverageItem
		if r, err = s.store.GetLeverageItem(ctx, ownerID, id); err == nil {
			e = sharedEntry{r.ID, r}
		}
	default:
		err = badRequest("unknown tab %q", tab)
	}
	return e, err
}
