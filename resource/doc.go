// Package resource binds the backend services to the query cache.
//
// Key factories name every cached resource. A [Scope] serves reads and
// mutations on behalf of one viewer: entries whose content depends on who
// is looking (a post's liked flag, "my page" listings) carry the viewer in
// their key, and fetchers registered for them keep the viewer's token so a
// later refetch never mixes users.
package resource
