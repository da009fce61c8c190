// Package config loads, normalizes, and validates manifestboard configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MANIFESTBOARD_SHARED_DIR and NTFY_TOPIC. The Config type centralizes every
// knob a display instance needs: where the shared schedule, acknowledgment,
// and mute documents live, the status window sizes, the polling cadences, and
// how announcements are spoken.
//
// Components never resolve paths on their own. They receive the resolved
// values from this package through their constructors, so there is no
// process-wide settings singleton.
package config
