package common

// AuthorizationHeaderName carries the bearer access token on API requests.
const AuthorizationHeaderName = "Authorization"

// MaxBatchOps is the hard cap on operations per remote batch write.
const MaxBatchOps = 500
