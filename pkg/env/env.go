// Package env provides the identity of the console host.
package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// AppID scopes the protected machine ID.
const AppID = "rigctl"

// MachineID retrieves the unique ID identifying the machine, hashed with
// AppID so the raw ID isn't exposed on a broker.
func MachineID() (string, error) {
	return machineid.ProtectedID(AppID)
}

// RigID returns the console ID: $RIG_ID, the machine ID or the host name.
func RigID() string {
	if id := os.Getenv("RIG_ID"); id != "" {
		return id
	}
	id, err := MachineID()
	if err == nil {
		if len(id) > 12 {
			id = id[:12]
		}
		return "rig-" + id
	}
	glog.Warningf("machine ID unavailable: %v", err)
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "rig"
}
