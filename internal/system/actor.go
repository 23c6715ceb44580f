package system

import (
	"fmt"
	"os"
	"os/user"
)

// Actor identifies who started the run.
type Actor struct {
	// Hostname is the machine name.
	Hostname string
	// Username is the effective user; installs normally run as root.
	Username string
}

// DetectActor gathers host and user information for the audit trail in the log.
func DetectActor() (*Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}
