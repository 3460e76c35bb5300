// internal/app/features/auditlog/auditlog.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	errorsfeature "github.com/dalemusser/gicesite/internal/app/features/errors"
	adminuserstore "github.com/dalemusser/gicesite/internal/app/store/adminusers"
	"github.com/dalemusser/gicesite/internal/app/store/audit"
	"github.com/dalemusser/gicesite/internal/app/system/timeouts"
	"github.com/dalemusser/gicesite/internal/app/system/timezones"
	"github.com/dalemusser/gicesite/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	pageSize   = 50
	dateLayout = "2006-01-02"
)

// Handler serves the admin-only audit log.
type Handler struct {
	events *audit.Store
	users  *adminuserstore.Store
	errLog *errorsfeature.ErrorLogger
	logger *zap.Logger
}

// NewHandler creates an audit log Handler.
func NewHandler(
	db *mongo.Database,
	errLog *errorsfeature.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		events: audit.New(db),
		users:  adminuserstore.New(db, logger),
		errLog: errLog,
		logger: logger,
	}
}

// Routes returns the audit log routes, mounted at /admin/audit behind the
// admin guard.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.List)
	return r
}

type row struct {
	When      time.Time
	Category  string
	EventType string
	Actor     string
	IP        string
	Success   bool
	Details   map[string]string
}

type option struct {
	Value string
	Label string
}

// ListVM is the view model for the audit log.
type ListVM struct {
	viewdata.BaseVM
	Rows []row

	Category  string
	EventType string
	StartDate string
	EndDate   string
	Timezone  string

	Categories     []option
	EventTypes     []string
	TimezoneGroups []timezones.ZoneGroup

	Page     int
	Total    int64
	From     int
	To       int
	PrevPage int // 0 when on the first page
	NextPage int // 0 when on the last page
}

var categories = []option{
	{Value: audit.CategoryAuth, Label: "Sign-in"},
	{Value: audit.CategoryAdmin, Label: "Admin users"},
	{Value: audit.CategoryContent, Label: "Content"},
}

var eventsByCategory = map[string][]string{
	audit.CategoryAuth: {
		audit.EventLoginSuccess,
		audit.EventLoginFailedUserNotFound,
		audit.EventLoginFailedWrongPassword,
		audit.EventLoginFailedUserDisabled,
		audit.EventLoginLockedOut,
		audit.EventLogout,
		audit.EventPasswordChanged,
	},
	audit.CategoryAdmin: {
		audit.EventUserCreated,
		audit.EventUserUpdated,
		audit.EventUserDisabled,
		audit.EventUserEnabled,
		audit.EventUserDeleted,
	},
	audit.CategoryContent: {
		audit.EventContentCreated,
		audit.EventContentUpdated,
		audit.EventContentDeleted,
		audit.EventSingletonSaved,
		audit.EventImageAssigned,
		audit.EventAssignmentRemoved,
		audit.EventTestimonialSubmitted,
		audit.EventTestimonialApproved,
		audit.EventDonationRecorded,
	},
}

// eventTypes lists the types for a category, or every type when category
// is empty.
func eventTypes(category string) []string {
	if category != "" {
		return eventsByCategory[category]
	}
	var all []string
	for _, c := range categories {
		all = append(all, eventsByCategory[c.Value]...)
	}
	return all
}

// List shows events newest first, filtered by category, type and a date
// range read in the chosen timezone.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	vm := ListVM{
		BaseVM:     viewdata.New(r),
		Category:   strings.TrimSpace(query.Get(r, "category")),
		EventType:  strings.TrimSpace(query.Get(r, "event_type")),
		StartDate:  strings.TrimSpace(query.Get(r, "start_date")),
		EndDate:    strings.TrimSpace(query.Get(r, "end_date")),
		Timezone:   strings.TrimSpace(query.Get(r, "tz")),
		Categories: categories,
		Page:       1,
	}
	vm.Title = "Audit Log"
	vm.EventTypes = eventTypes(vm.Category)
	if p, err := strconv.Atoi(query.Get(r, "page")); err == nil && p > 0 {
		vm.Page = p
	}

	loc, ok := timezones.Location(vm.Timezone, time.Local)
	if !ok {
		vm.Timezone = ""
	}
	groups, err := timezones.Groups()
	if err != nil {
		h.logger.Warn("timezone list unavailable", zap.Error(err))
	}
	vm.TimezoneGroups = groups

	filter := audit.Filter{Category: vm.Category, EventType: vm.EventType}
	if t, err := time.ParseInLocation(dateLayout, vm.StartDate, loc); err == nil {
		filter.Since = t
	}
	if t, err := time.ParseInLocation(dateLayout, vm.EndDate, loc); err == nil {
		filter.Until = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	skip := int64((vm.Page - 1) * pageSize)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.logger, "audit log")
	defer cancel()

	events, err := h.events.Find(ctx, filter, skip, pageSize)
	if err != nil {
		h.errLog.Log(r, "query audit events", err)
		errorsfeature.Page(w, r, http.StatusInternalServerError)
		return
	}
	vm.Total, err = h.events.Count(ctx, filter)
	if err != nil {
		h.logger.Warn("count audit events", zap.Error(err))
		vm.Total = skip + int64(len(events))
	}

	names := h.actorNames(ctx, events)
	vm.Rows = make([]row, 0, len(events))
	for _, e := range events {
		vm.Rows = append(vm.Rows, row{
			When:      e.CreatedAt.In(loc),
			Category:  e.Category,
			EventType: e.EventType,
			Actor:     actorName(e, names),
			IP:        e.IP,
			Success:   e.Success,
			Details:   e.Details,
		})
	}

	if len(vm.Rows) > 0 {
		vm.From = int(skip) + 1
		vm.To = int(skip) + len(vm.Rows)
	}
	if vm.Page > 1 {
		vm.PrevPage = vm.Page - 1
	}
	if int64(vm.To) < vm.Total {
		vm.NextPage = vm.Page + 1
	}

	templates.Render(w, r, "auditlog/list", vm)
}

func (h *Handler) actorNames(ctx context.Context, events []audit.Event) map[primitive.ObjectID]string {
	seen := make(map[primitive.ObjectID]struct{})
	var ids []primitive.ObjectID
	add := func(id *primitive.ObjectID) {
		if id == nil {
			return
		}
		if _, ok := seen[*id]; !ok {
			seen[*id] = struct{}{}
			ids = append(ids, *id)
		}
	}
	for _, e := range events {
		add(e.ActorID)
		add(e.UserID)
	}
	names, err := h.users.Names(ctx, ids)
	if err != nil {
		h.logger.Warn("resolve audit actor names", zap.Error(err))
		return nil
	}
	return names
}

// actorName is the admin who acted. For sign-in events the user acted on
// their own behalf. Deleted accounts resolve to "".
func actorName(e audit.Event, names map[primitive.ObjectID]string) string {
	switch {
	case e.ActorID != nil:
		return names[*e.ActorID]
	case e.UserID != nil && e.Category == audit.CategoryAuth:
		return names[*e.UserID]
	}
	return ""
}
