package app

import "github.com/dkeye/relay/internal/domain"

type PeerAction int

const (
	NoAction PeerAction = iota
	TerminatePeer
)

// Policy decides what happens to a peer whose forward failed.
type Policy interface {
	OnPeerUnreachable(room domain.RoomID, peer domain.SessionID, err error) PeerAction
}

// SimplePolicy treats any failed write as evidence of disconnection.
type SimplePolicy struct{}

func (SimplePolicy) OnPeerUnreachable(domain.RoomID, domain.SessionID, error) PeerAction {
	return TerminatePeer
}
