package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jrsteele09/bytefit/internal/errors"
	"github.com/jrsteele09/bytefit/notify"
)

// Views
const (
	ViewLanding        = "/"
	ViewDashboard      = "/dashboard"
	ViewAddActivity    = "/add-activity"
	ViewActivityPrefix = "/activities/"
)

// ActivityView is the detail view for one activity
func ActivityView(id string) string {
	return ViewActivityPrefix + id
}

type Navigator interface {
	Navigate(view string)
}

type NavigatorFunc func(view string)

func (f NavigatorFunc) Navigate(view string) { f(view) }

type guardMessages struct {
	denied  string
	granted string
}

var protectedViews = map[string]guardMessages{
	ViewDashboard:   {denied: "Please login to access your dashboard", granted: "Welcome to your Dashboard!"},
	ViewAddActivity: {denied: "Login required to track your activities", granted: "Ready to log your workout!"},
}

const detailDenied = "Please sign in to access this page"

// IsProtected reports whether view needs an authenticated session
func IsProtected(view string) bool {
	if _, ok := protectedViews[view]; ok {
		return true
	}
	return strings.HasPrefix(view, ViewActivityPrefix)
}

// Guard allows public views and, when authenticated, protected ones.
// Otherwise it tells the user to log in and returns ErrNotAuthenticated.
func (r *Reconciler) Guard(ctx context.Context, view string) error {
	if !IsProtected(view) || r.IsAuthenticated(ctx) {
		return nil
	}
	msg := detailDenied
	if m, ok := protectedViews[view]; ok {
		msg = m.denied
	}
	r.notifier.Notify(msg, notify.Error(4*time.Second))
	return fmt.Errorf("[Reconciler Guard] %s: %w", view, errors.ErrNotAuthenticated)
}

// Navigate moves to view when the guard allows it
func (r *Reconciler) Navigate(ctx context.Context, view string) error {
	if err := r.Guard(ctx, view); err != nil {
		return err
	}
	if m, ok := protectedViews[view]; ok {
		r.notifier.Notify(m.granted, notify.Success(2*time.Second))
	}
	r.navigator.Navigate(view)
	return nil
}
