package domain

// KeyPrefix namespaces every metadata key in the shared Redis keyspace.
// Overridden at startup from cache.key_prefix.
var KeyPrefix = "fedsearch:"
