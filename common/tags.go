package common

// Asset properties set at ingestion
const (
	PropTimeStart = "time_start"
	PropTimeEnd   = "time_end"
)

// Values accepted as ACL shortcut
const (
	ACLNamePublic  = "public"
	ACLNamePrivate = "private"
)
