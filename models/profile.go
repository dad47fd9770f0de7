package models

// ProfileKind names a cached identity record and doubles as its storage key.
type ProfileKind string

const (
	ProfileUser               ProfileKind = "user"
	ProfileApplication        ProfileKind = "application"
	ProfileAdmin              ProfileKind = "admin"
	ProfileAdminServers       ProfileKind = "admin_servers"
	ProfileAdminApplications  ProfileKind = "admin_applications"
	ProfileAdminNotifications ProfileKind = "admin_notifications"
)

// UserProfile is the platform user record returned by the profile endpoint.
type UserProfile struct {
	ID           string  `json:"id"`
	Username     string  `json:"username"`
	Email        string  `json:"email,omitempty"`
	Phone        string  `json:"phone,omitempty"`
	Balance      float64 `json:"balance"`
	ReferralCode string  `json:"referral_code,omitempty"`
	Level        int     `json:"level,omitempty"`
	Status       string  `json:"status,omitempty"`
}

// ApplicationProfile is the tenant metadata the user belongs to.
type ApplicationProfile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency,omitempty"`
	Logo     string `json:"logo,omitempty"`
	Support  string `json:"support,omitempty"`
}

// AdminProfile is the administrator record stored after an admin login.
type AdminProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
}

// ServerStatus carries the server status flags shown in the admin panel.
type ServerStatus struct {
	Maintenance  bool `json:"maintenance"`
	Registration bool `json:"registration"`
	Withdrawal   bool `json:"withdrawal"`
	Investment   bool `json:"investment"`
}

// ApplicationCounts summarises tenant applications.
type ApplicationCounts struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

// NotificationCounts holds the badge counters of the admin sidebar.
type NotificationCounts struct {
	PendingWithdrawals int `json:"pending_withdrawals"`
	PendingForums      int `json:"pending_forums"`
	PendingTasks       int `json:"pending_tasks"`
	NewUsers           int `json:"new_users"`
}

// Identity aggregates the optional records produced by a single profile fetch.
type Identity struct {
	User          *UserProfile        `json:"user,omitempty"`
	Application   *ApplicationProfile `json:"application,omitempty"`
	Admin         *AdminProfile       `json:"admin,omitempty"`
	Servers       *ServerStatus       `json:"servers,omitempty"`
	Applications  *ApplicationCounts  `json:"applications,omitempty"`
	Notifications *NotificationCounts `json:"notifications,omitempty"`
}

// Empty reports whether no record is set.
func (i *Identity) Empty() bool {
	return i == nil || (i.User == nil && i.Application == nil && i.Admin == nil &&
		i.Servers == nil && i.Applications == nil && i.Notifications == nil)
}

// Merge overlays the non-nil records of other onto a copy of i.
func (i *Identity) Merge(other *Identity) *Identity {
	out := &Identity{}
	if i != nil {
		*out = *i
	}
	if other == nil {
		return out
	}
	if other.User != nil {
		out.User = other.User
	}
	if other.Application != nil {
		out.Application = other.Application
	}
	if other.Admin != nil {
		out.Admin = other.Admin
	}
	if other.Servers != nil {
		out.Servers = other.Servers
	}
	if other.Applications != nil {
		out.Applications = other.Applications
	}
	if other.Notifications != nil {
		out.Notifications = other.Notifications
	}
	return out
}
