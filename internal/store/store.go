// Package store holds the process-wide session and UI state consumed by every
// part of the client. All writes go through named mutators so the invariants
// stay auditable; subscribers are notified of changes through buffered event
// channels.
package store

import (
	"context"
	"sync"
	"time"

	"socio/internal/models"
	"socio/internal/observability"
)

// DeviceClass is the viewport classification recomputed on resize.
type DeviceClass string

const (
	DeviceMobile  DeviceClass = "mobile"
	DeviceTablet  DeviceClass = "tablet"
	DeviceDesktop DeviceClass = "desktop"
)

// Viewport breakpoints. Tablet widths force the sidebar collapsed.
const (
	mobileMaxWidth = 767
	tabletMaxWidth = 1024
)

// DefaultAlertTTL is how long an alert stays visible without dismissal.
const DefaultAlertTTL = 5 * time.Second

// Alert is a transient user-facing notification. The queue has depth 1: a new
// alert preempts display of the previous one.
type Alert struct {
	Type    string
	Message string
}

// EventKind names a state change published to subscribers.
type EventKind string

const (
	EventAlert         EventKind = "alert"
	EventAlertCleared  EventKind = "alert_cleared"
	EventLoggedIn      EventKind = "logged_in"
	EventUserDetails   EventKind = "user_details"
	EventThreads       EventKind = "threads"
	EventSelectedChat  EventKind = "selected_chat"
	EventThreadUpdated EventKind = "thread_updated"
	EventDarkMode      EventKind = "dark_mode"
	EventDevice        EventKind = "device"
	EventSidebar       EventKind = "sidebar"
	EventSending       EventKind = "sending"
	EventLogout        EventKind = "logout"
)

// Event is delivered to subscribers on each state change.
type Event struct {
	Kind EventKind
}

// Store is the single mutable shared resource of the client layer.
type Store struct {
	mu    sync.RWMutex
	prefs Preferences

	loggedIn    bool
	userDetails *models.ProfileSummary
	threads     map[string]*models.ChatThread
	selected    *models.ChatThread
	sending     bool

	alert      *Alert
	alertTTL   time.Duration
	alertTimer *time.Timer
	alertSeq   uint64

	darkMode         bool
	device           DeviceClass
	sidebarCollapsed bool

	subs    map[int]chan Event
	nextSub int
}

// NewStore initializes the container with defaults: dark mode read from
// durable storage, desktop device class until the first viewport measurement.
func NewStore(prefs Preferences, alertTTL time.Duration) *Store {
	if alertTTL <= 0 {
		alertTTL = DefaultAlertTTL
	}
	darkMode := false
	if prefs != nil {
		stored, err := prefs.DarkMode(context.Background())
		if err != nil {
			observability.GlobalLogger.Warn("reading dark mode preference failed", "error", err)
		} else {
			darkMode = stored
		}
	}
	return &Store{
		prefs:    prefs,
		threads:  make(map[string]*models.ChatThread),
		alertTTL: alertTTL,
		darkMode: darkMode,
		device:   DeviceDesktop,
		subs:     make(map[int]chan Event),
	}
}

// Subscribe registers an event channel. The returned function unsubscribes.
func (s *Store) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan Event, 16)
	s.subs[id] = ch
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// notify fans an event out to subscribers without blocking on slow readers.
func (s *Store) notify(kind EventKind) {
	s.mu.RLock()
	for _, ch := range s.subs {
		select {
		case ch <- Event{Kind: kind}:
		default:
		}
	}
	s.mu.RUnlock()
}

// SetAlert replaces the currently displayed alert and arms its expiry timer.
func (s *Store) SetAlert(a Alert) {
	s.mu.Lock()
	if s.alertTimer != nil {
		s.alertTimer.Stop()
	}
	s.alert = &a
	s.alertSeq++
	seq := s.alertSeq
	s.alertTimer = time.AfterFunc(s.alertTTL, func() {
		s.expireAlert(seq)
	})
	s.mu.Unlock()
	s.notify(EventAlert)
}

// DismissAlert clears the alert before its timer fires.
func (s *Store) DismissAlert() {
	s.mu.Lock()
	seq := s.alertSeq
	s.mu.Unlock()
	s.expireAlert(seq)
}

// expireAlert clears the alert only if it has not been preempted since seq.
func (s *Store) expireAlert(seq uint64) {
	s.mu.Lock()
	if s.alertSeq != seq || s.alert == nil {
		s.mu.Unlock()
		return
	}
	if s.alertTimer != nil {
		s.alertTimer.Stop()
		s.alertTimer = nil
	}
	s.alert = nil
	s.mu.Unlock()
	s.notify(EventAlertCleared)
}

// Alert returns the currently displayed alert, if any.
func (s *Store) Alert() *Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alert
}

// SetLoggedIn flips the session flag.
func (s *Store) SetLoggedIn(loggedIn bool) {
	s.mu.Lock()
	s.loggedIn = loggedIn
	s.mu.Unlock()
	s.notify(EventLoggedIn)
}

// LoggedIn reports whether a session is active.
func (s *Store) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggedIn
}

// SetUserDetails installs the current user's enriched profile.
func (s *Store) SetUserDetails(details *models.ProfileSummary) {
	s.mu.Lock()
	s.userDetails = details
	s.mu.Unlock()
	s.notify(EventUserDetails)
}

// UserDetails returns the current user's enriched profile, nil when logged out.
func (s *Store) UserDetails() *models.ProfileSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userDetails
}

// SetThreads replaces the thread list keyed by counterpart username.
func (s *Store) SetThreads(threads map[string]*models.ChatThread) {
	s.mu.Lock()
	if threads == nil {
		threads = make(map[string]*models.ChatThread)
	}
	s.threads = threads
	s.mu.Unlock()
	s.notify(EventThreads)
}

// Threads returns a copy of the thread index.
func (s *Store) Threads() map[string]*models.ChatThread {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*models.ChatThread, len(s.threads))
	for k, v := range s.threads {
		out[k] = v
	}
	return out
}

// PublishThread installs an updated thread and, when it is the selected one,
// refreshes the selection to the new value.
func (s *Store) PublishThread(thread *models.ChatThread) {
	s.mu.Lock()
	s.threads[thread.Name] = thread
	if s.selected != nil && s.selected.Name == thread.Name {
		s.selected = thread
	}
	s.mu.Unlock()
	s.notify(EventThreadUpdated)
}

// SetSelectedChat changes which thread is open; nil deselects.
func (s *Store) SetSelectedChat(thread *models.ChatThread) {
	s.mu.Lock()
	s.selected = thread
	s.mu.Unlock()
	s.notify(EventSelectedChat)
}

// SelectedChat returns the open thread, nil when none is selected.
func (s *Store) SelectedChat() *models.ChatThread {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// SetSending marks the outgoing-message UI feedback flag.
func (s *Store) SetSending(sending bool) {
	s.mu.Lock()
	s.sending = sending
	s.mu.Unlock()
	s.notify(EventSending)
}

// Sending reports whether a message send is in flight.
func (s *Store) Sending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sending
}

// ToggleDarkMode flips the preference and persists it to durable storage.
func (s *Store) ToggleDarkMode(ctx context.Context) {
	s.mu.Lock()
	s.darkMode = !s.darkMode
	enabled := s.darkMode
	prefs := s.prefs
	s.mu.Unlock()

	if prefs != nil {
		if err := prefs.SetDarkMode(ctx, enabled); err != nil {
			observability.GlobalLogger.Warn("persisting dark mode preference failed", "error", err)
		}
	}
	s.notify(EventDarkMode)
}

// DarkMode reports the current preference.
func (s *Store) DarkMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.darkMode
}

// UpdateDeviceClass reclassifies the device from the viewport width.
func (s *Store) UpdateDeviceClass(width int) {
	s.mu.Lock()
	switch {
	case width <= mobileMaxWidth:
		s.device = DeviceMobile
	case width <= tabletMaxWidth:
		s.device = DeviceTablet
		s.sidebarCollapsed = true
	default:
		s.device = DeviceDesktop
	}
	s.mu.Unlock()
	s.notify(EventDevice)
}

// Device returns the current device classification.
func (s *Store) Device() DeviceClass {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.device
}

// SetSidebarCollapsed sets the sidebar flag.
func (s *Store) SetSidebarCollapsed(collapsed bool) {
	s.mu.Lock()
	s.sidebarCollapsed = collapsed
	s.mu.Unlock()
	s.notify(EventSidebar)
}

// SidebarCollapsed reports the sidebar flag.
func (s *Store) SidebarCollapsed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sidebarCollapsed
}

// Logout clears session-scoped fields without touching UI preferences. It
// does not force a reload; dark mode and device class survive.
func (s *Store) Logout() {
	s.mu.Lock()
	s.loggedIn = false
	s.userDetails = nil
	s.threads = make(map[string]*models.ChatThread)
	s.selected = nil
	s.sending = false
	s.alert = nil
	s.alertSeq++
	if s.alertTimer != nil {
		s.alertTimer.Stop()
		s.alertTimer = nil
	}
	s.mu.Unlock()
	s.notify(EventLogout)
}
