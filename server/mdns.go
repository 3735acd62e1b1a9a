package server

import (
	"fmt"

	"github.com/grandcat/zeroconf"
	"github.com/sirupsen/logrus"
)

// announcement is a running mDNS registration.
type announcement interface {
	Shutdown()
}

type registerFunc func(name string, port int, txt []string) (announcement, error)

func registerZeroconf(name string, port int, txt []string) (announcement, error) {
	server, err := zeroconf.Register(name, MDNSServiceType, MDNSDomain, port, txt, nil)
	if err != nil {
		return nil, err
	}
	return server, nil
}

func txtRecords(readerName string) []string {
	return []string{
		"version=1.0",
		"reader=" + readerName,
		"atr=" + ATR,
		"atrMask=" + ATRMask,
		"api=/api",
		"path=/ws",
	}
}

// announce registers the reader as an mDNS service so that clients on the
// local network can discover it. A registration that finishes after Stop is
// withdrawn right away.
func (s *Server) announce(port int) error {
	name := s.config.Reader.Name()
	a, err := s.register(name, port, txtRecords(name))
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		a.Shutdown()
		return nil
	}
	s.mdnsServer = a
	logrus.Infof("mDNS service registered: %v on port %d", name, port)
	return nil
}
