// Command manifestboard runs a shipping-manifest status board and offers
// operator commands against the shared documents it coordinates through.
//
// `manifestboard run` starts a display instance for this station. Every other
// command reads or writes the shared documents directly, so acknowledgments
// and mute changes made from a shell are picked up by every running board on
// its next poll.
package main
