/*
Package catalog persists tenant specifications in a BoltDB database.

The catalog is strictly a server-layer convenience: the resource
isolation core holds all tenant state in process and loses it on
restart by design. The demo server records every create, quota update,
and remove in the catalog and replays the stored specifications into
the core at boot.
*/
package catalog
