// Package leaflet models a browser map as a tree of server-side entities.
//
// A Map owns a root group; markers, paths, overlays and nested groups are
// attached below it with AddTo. Every entity has a stable id, a kind that
// names its remote constructor, and an events.Bus. Setters on an attached
// entity are mirrored to the browser through the map's bridge, and events
// coming back from the browser are routed to the entity by id with
// Map.Dispatch.
//
// Entities are not safe for concurrent use. A session runs every call on
// its owner loop.
package leaflet
