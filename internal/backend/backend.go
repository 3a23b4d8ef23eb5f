/*
Package backend defines the closed enumeration of privacy networks chimera fronts for. Each
back-end is identified by a small comparable tag which doubles as the configuration section name
and the key used in status maps. The set is closed: adding a network means adding a tag here, an
adapter for it, and (usually) a routing rule.
*/
package backend

import "fmt"

// Backend identifies one of the ten recognized privacy networks.
type Backend int

const (
	Tor Backend = iota
	I2P
	Nym
	Lokinet
	IPFS
	ZeroNet
	Freenet
	GNUnet
	RetroShare
	Tribler
	listSize
)

var tags = [listSize]string{
	Tor:        "tor",
	I2P:        "i2p",
	Nym:        "nym",
	Lokinet:    "lokinet",
	IPFS:       "ipfs",
	ZeroNet:    "zeronet",
	Freenet:    "freenet",
	GNUnet:     "gnunet",
	RetroShare: "retroshare",
	Tribler:    "tribler",
}

// String returns the lowercase tag used in config files, status maps and log lines.
func (b Backend) String() string {
	if b < 0 || b >= listSize {
		return fmt.Sprintf("backend(%d)", int(b))
	}

	return tags[b]
}

// Parse converts a tag back to its Backend. The bool is false for anything outside the closed set.
func Parse(tag string) (Backend, bool) {
	for b, t := range tags {
		if t == tag {
			return Backend(b), true
		}
	}

	return Tor, false
}

// All returns the complete set in supervisor start order: the two chain participants first, then
// the rest in the fixed sequence the supervisor iterates.
func All() []Backend {
	return []Backend{Tor, Nym, I2P, Lokinet, IPFS, ZeroNet, Freenet, RetroShare, GNUnet, Tribler}
}
