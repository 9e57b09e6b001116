// Package registry serves capabilities on TCP endpoints and brokers
// clients to them.
//
// Every capability gets an Endpoint whose port is fixed when the Registry
// is created: registry port + 2 + index, in the order the services were
// given. An endpoint binds lazily, on the first GetServicePort for its
// name, or eagerly through Start.
//
// The registry also listens on its own port and answers three calls:
//
//	get_service_port(name) -> int   // -1 for unknown names
//	get_version() -> string
//	list_services() -> [name...]
//
// Remote wraps those calls for clients.
package registry
