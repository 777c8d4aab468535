package core

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Session identifiers distinguish asset instances across reloads in logs and
// caches. IDs come from a v4 UUID folded to 32 bits; the owner table keeps
// the issuing object reachable for diagnostics until the ID is released.
var sessionMu sync.Mutex
var sessionOwners map[uint32]interface{}

func IdentifierAquireNewID(owner interface{}) uint32 {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	if sessionOwners == nil {
		sessionOwners = make(map[uint32]interface{}, 100)
	}
	id := uuid.New().ID()
	for {
		if _, taken := sessionOwners[id]; !taken && id != 0 {
			break
		}
		id = uuid.New().ID()
	}
	sessionOwners[id] = owner
	return id
}

func IdentifierReleaseID(id uint32) error {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	if len(sessionOwners) == 0 {
		err := fmt.Errorf("identifier_release_id called before initialization. identifier_aquire_new_id should have been called first. Nothing was done")
		return err
	}
	if _, ok := sessionOwners[id]; !ok {
		err := fmt.Errorf("identifier_release_id: id '%d' was never issued. Nothing was done", id)
		return err
	}
	delete(sessionOwners, id)
	return nil
}
