package common

// APIPrefix is the versioned prefix every account route is mounted under.
const APIPrefix = "/v1"

// DefaultInstanceID is reported as the metrics instance dimension when the
// host is not an EC2 instance or the metadata service is unreachable.
const DefaultInstanceID = "localhost"
