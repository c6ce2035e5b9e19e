package domain

// Station roles. Admins manage events, registrations and stations;
// stations may only run check-ins and enrollments.
const (
	RoleAdmin   = "admin"
	RoleStation = "station"
)
