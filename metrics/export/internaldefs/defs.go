package internaldefs

import (
	goAccount "github.com/MrEthical07/goAccount"
)

// CounterDef names one engine counter for every exporter.
type CounterDef struct {
	ID   goAccount.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   goAccount.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goAccount.MetricLoginSuccess, Name: "goaccount_login_success_total", Help: "Successful logins."},
	{ID: goAccount.MetricLoginFailure, Name: "goaccount_login_failure_total", Help: "Logins rejected after the limiter admitted them."},
	{ID: goAccount.MetricLoginRateLimited, Name: "goaccount_login_rate_limited_total", Help: "Logins rejected by the per-address limiter."},
	{ID: goAccount.MetricPasswordRehashed, Name: "goaccount_password_rehashed_total", Help: "Password hashes upgraded on login."},
	{ID: goAccount.MetricRecoveryRequest, Name: "goaccount_recovery_request_total", Help: "Issued recovery codes."},
	{ID: goAccount.MetricRecoveryConfirmSuccess, Name: "goaccount_recovery_confirm_success_total", Help: "Completed recoveries."},
	{ID: goAccount.MetricRecoveryConfirmFailure, Name: "goaccount_recovery_confirm_failure_total", Help: "Rejected recovery codes."},
	{ID: goAccount.MetricRecoveryRateLimited, Name: "goaccount_recovery_rate_limited_total", Help: "Recovery calls rejected by the per-address limiter."},
	{ID: goAccount.MetricRecoveryAttemptsExceeded, Name: "goaccount_recovery_attempts_exceeded_total", Help: "Recovery codes discarded at the guess cap."},
	{ID: goAccount.MetricAccountCreated, Name: "goaccount_account_created_total", Help: "Created accounts."},
	{ID: goAccount.MetricAccountDuplicate, Name: "goaccount_account_duplicate_total", Help: "Account creations rejected as duplicates."},
	{ID: goAccount.MetricAccountDeleted, Name: "goaccount_account_deleted_total", Help: "Deleted accounts."},
	{ID: goAccount.MetricAccountDisabled, Name: "goaccount_account_disabled_total", Help: "Account disable operations."},
	{ID: goAccount.MetricPasswordChangeSuccess, Name: "goaccount_password_change_success_total", Help: "Successful password changes."},
	{ID: goAccount.MetricPasswordChangeInvalidOld, Name: "goaccount_password_change_invalid_old_total", Help: "Password changes with a wrong old password."},
	{ID: goAccount.MetricAdminList, Name: "goaccount_admin_list_total", Help: "Administrative account list calls."},
}

var HistogramDefs = []HistogramDef{
	{ID: goAccount.MetricLoginLatency, Name: "goaccount_login_latency_seconds", Help: "Login latency histogram."},
}

var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix holds instrument-name-safe forms of HistogramBounds.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
