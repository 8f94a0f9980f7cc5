/*
Package types defines the core data structures used throughout tenantd.

This package contains the fundamental types of the resource isolation
domain model: tenant specifications and quota contracts, worker lifecycle
states, thread group and system thread reports, and per-resource
accounting slots. These types are used by all other packages for
accounting, admission, and the admin API.

All types are designed to be:
  - Serializable (JSON for the API layer, YAML for boot manifests)
  - Free of behavior (logic lives in the owning packages)
  - Self-documenting (string constants for enums)
*/
package types
