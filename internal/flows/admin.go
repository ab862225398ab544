package flows

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/MrEthical07/goAccount/store"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type ListQuery struct {
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
	Search   string `json:"searchQuery,omitempty"`
}

type AccountPage struct {
	Accounts   []AccountView `json:"users"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	TotalPages int           `json:"totalPages"`
}

type AdminMetrics struct {
	AccountDeleted  int
	AccountDisabled int
	AdminList       int
}

type AdminEvents struct {
	AccountStatusChange string
	AccountRoleChange   string
	AccountDeleted      string
}

type AdminErrors struct {
	EngineNotReady   error
	InvalidInput     error
	AccountNotFound  error
	SelfAction       error
	FallbackAccount  error
	Forbidden        error
	Unauthorized     error
	PurgeUnavailable error
}

type AdminDeps struct {
	FallbackHandle  string
	DefaultPageSize int
	MaxPageSize     int

	ResolveActor func(context.Context) (Actor, error)

	ListAccounts  func(context.Context, store.Predicate) ([]store.Account, error)
	GetAccount    func(context.Context, string) (store.Account, error)
	UpdateAccount func(context.Context, string, func(*store.Account) error) error
	RemoveAccount func(context.Context, string) error
	IsNotFound    func(error) bool
	MapStoreError func(error) error

	// PurgeData removes data owned by a deleted account. Nil disables purging.
	PurgeData func(ctx context.Context, handle string) error

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics AdminMetrics
	Events  AdminEvents
	Errors  AdminErrors
}

// NormalizeQuery clamps paging parameters. Zero limits fall back to
// DefaultPageSize and MaxPageSize. Page is capped so that the page offset
// fits in an int.
func NormalizeQuery(q ListQuery, defaultSize, maxSize int) ListQuery {
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	if maxSize <= 0 {
		maxSize = MaxPageSize
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultSize
	}
	if q.PageSize > maxSize {
		q.PageSize = maxSize
	}
	if q.Page > math.MaxInt/q.PageSize {
		q.Page = math.MaxInt / q.PageSize
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

// Paginate filters, orders and slices accounts. The search filter is applied
// before ordering and slicing, so Total counts matches only.
func Paginate(accounts []store.Account, q ListQuery) AccountPage {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}

	var matched []store.Account
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		matched = store.Filter(accounts, func(a store.Account) bool {
			return strings.Contains(strings.ToLower(a.Name), needle) ||
				strings.Contains(strings.ToLower(a.Handle), needle)
		})
	} else {
		matched = append([]store.Account(nil), accounts...)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Created != matched[j].Created {
			return matched[i].Created < matched[j].Created
		}
		return matched[i].Handle < matched[j].Handle
	})

	total := len(matched)
	pages := total / q.PageSize
	if total%q.PageSize != 0 {
		pages++
	}
	page := AccountPage{
		Accounts:   []AccountView{},
		Total:      total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: pages,
	}

	// Compare pages before multiplying: Page*PageSize may overflow.
	if q.Page > pages {
		return page
	}
	start := (q.Page - 1) * q.PageSize
	end := total
	if total-start > q.PageSize {
		end = start + q.PageSize
	}
	for _, a := range matched[start:end] {
		page.Accounts = append(page.Accounts, ViewOf(a))
	}
	return page
}

// RunListAccounts returns one page of accounts for an administrator.
func RunListAccounts(ctx context.Context, q ListQuery, deps AdminDeps) (*AccountPage, error) {
	normalizeAdminDeps(&deps)

	if deps.ListAccounts == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if _, err := requireAdmin(ctx, &deps); err != nil {
		return nil, err
	}

	accounts, err := deps.ListAccounts(ctx, nil)
	if err != nil {
		return nil, deps.MapStoreError(err)
	}

	deps.MetricInc(deps.Metrics.AdminList)
	page := Paginate(accounts, NormalizeQuery(q, deps.DefaultPageSize, deps.MaxPageSize))
	return &page, nil
}

// RunListPublic returns every enabled account ordered by creation time. It
// requires no caller identity.
func RunListPublic(ctx context.Context, deps AdminDeps) ([]AccountView, error) {
	normalizeAdminDeps(&deps)

	if deps.ListAccounts == nil {
		return nil, deps.Errors.EngineNotReady
	}

	accounts, err := deps.ListAccounts(ctx, func(a store.Account) bool { return a.Enabled })
	if err != nil {
		return nil, deps.MapStoreError(err)
	}
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].Created != accounts[j].Created {
			return accounts[i].Created < accounts[j].Created
		}
		return accounts[i].Handle < accounts[j].Handle
	})

	views := make([]AccountView, 0, len(accounts))
	for _, a := range accounts {
		v := ViewOf(a)
		v.Admin = false
		views = append(views, v)
	}
	return views, nil
}

// RunSetEnabled enables or disables handle. Administrators cannot disable
// themselves.
func RunSetEnabled(ctx context.Context, handle string, enabled bool, deps AdminDeps) error {
	normalizeAdminDeps(&deps)

	if deps.UpdateAccount == nil {
		return deps.Errors.EngineNotReady
	}
	actor, err := requireAdmin(ctx, &deps)
	if err != nil {
		return err
	}
	if handle == "" {
		return deps.Errors.InvalidInput
	}
	if !enabled && actor.Handle == handle {
		deps.EmitAudit(ctx, deps.Events.AccountStatusChange, false, handle, deps.Errors.SelfAction, reasonMeta("self"))
		return deps.Errors.SelfAction
	}

	err = deps.UpdateAccount(ctx, handle, func(a *store.Account) error {
		a.Enabled = enabled
		return nil
	})
	if err != nil {
		return mapAdminError(ctx, deps.Events.AccountStatusChange, handle, err, &deps)
	}

	if !enabled {
		deps.MetricInc(deps.Metrics.AccountDisabled)
	}
	deps.EmitAudit(ctx, deps.Events.AccountStatusChange, true, handle, nil, func() map[string]string {
		return map[string]string{"enabled": boolString(enabled), "actor": actor.Handle}
	})
	return nil
}

// RunSetAdmin promotes or demotes handle. Administrators cannot demote
// themselves.
func RunSetAdmin(ctx context.Context, handle string, admin bool, deps AdminDeps) error {
	normalizeAdminDeps(&deps)

	if deps.UpdateAccount == nil {
		return deps.Errors.EngineNotReady
	}
	actor, err := requireAdmin(ctx, &deps)
	if err != nil {
		return err
	}
	if handle == "" {
		return deps.Errors.InvalidInput
	}
	if !admin && actor.Handle == handle {
		deps.EmitAudit(ctx, deps.Events.AccountRoleChange, false, handle, deps.Errors.SelfAction, reasonMeta("self"))
		return deps.Errors.SelfAction
	}

	err = deps.UpdateAccount(ctx, handle, func(a *store.Account) error {
		a.Admin = admin
		return nil
	})
	if err != nil {
		return mapAdminError(ctx, deps.Events.AccountRoleChange, handle, err, &deps)
	}

	deps.EmitAudit(ctx, deps.Events.AccountRoleChange, true, handle, nil, func() map[string]string {
		return map[string]string{"admin": boolString(admin), "actor": actor.Handle}
	})
	return nil
}

// RunDeleteAccount removes handle and, when purge is set, the data it owns.
// The fallback account and the caller's own account cannot be deleted.
func RunDeleteAccount(ctx context.Context, handle string, purge bool, deps AdminDeps) error {
	normalizeAdminDeps(&deps)

	if deps.GetAccount == nil || deps.RemoveAccount == nil {
		return deps.Errors.EngineNotReady
	}
	actor, err := requireAdmin(ctx, &deps)
	if err != nil {
		return err
	}
	if handle == "" {
		return deps.Errors.InvalidInput
	}
	if actor.Handle == handle {
		deps.EmitAudit(ctx, deps.Events.AccountDeleted, false, handle, deps.Errors.SelfAction, reasonMeta("self"))
		return deps.Errors.SelfAction
	}
	if handle == deps.FallbackHandle {
		deps.EmitAudit(ctx, deps.Events.AccountDeleted, false, handle, deps.Errors.FallbackAccount, reasonMeta("fallback"))
		return deps.Errors.FallbackAccount
	}

	if _, err := deps.GetAccount(ctx, handle); err != nil {
		return mapAdminError(ctx, deps.Events.AccountDeleted, handle, err, &deps)
	}
	if err := deps.RemoveAccount(ctx, handle); err != nil {
		return mapAdminError(ctx, deps.Events.AccountDeleted, handle, err, &deps)
	}

	purged := false
	if purge && deps.PurgeData != nil {
		if err := deps.PurgeData(ctx, handle); err != nil {
			deps.EmitAudit(ctx, deps.Events.AccountDeleted, false, handle, deps.Errors.PurgeUnavailable, reasonMeta("purge_failed"))
			return deps.Errors.PurgeUnavailable
		}
		purged = true
	}

	deps.MetricInc(deps.Metrics.AccountDeleted)
	deps.EmitAudit(ctx, deps.Events.AccountDeleted, true, handle, nil, func() map[string]string {
		return map[string]string{"purged": boolString(purged), "actor": actor.Handle}
	})
	return nil
}

func requireAdmin(ctx context.Context, deps *AdminDeps) (Actor, error) {
	actor, err := deps.ResolveActor(ctx)
	if err != nil {
		return Actor{}, err
	}
	if !actor.Admin {
		return Actor{}, deps.Errors.Forbidden
	}
	return actor, nil
}

func mapAdminError(ctx context.Context, event, handle string, err error, deps *AdminDeps) error {
	var mapped error
	if deps.IsNotFound(err) {
		mapped = deps.Errors.AccountNotFound
	} else {
		mapped = deps.MapStoreError(err)
	}
	deps.EmitAudit(ctx, event, false, handle, mapped, nil)
	return mapped
}

func normalizeAdminDeps(deps *AdminDeps) {
	if deps.ResolveActor == nil {
		deps.ResolveActor = func(context.Context) (Actor, error) { return Actor{}, deps.Errors.Unauthorized }
	}
	if deps.IsNotFound == nil {
		deps.IsNotFound = func(err error) bool { return errors.Is(err, store.ErrNotFound) }
	}
	if deps.MapStoreError == nil {
		deps.MapStoreError = func(err error) error { return err }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
}
