package services

// IsOwner reports whether actor owns the resource.
func IsOwner(actorID, ownerID uint) bool {
	return actorID != 0 && actorID == ownerID
}

// IsNotSelf reports whether actor and subject are different users.
func IsNotSelf(actorID, subjectID uint) bool {
	return actorID != subjectID
}

func requireOwner(actorID, ownerID uint, err error) error {
	if !IsOwner(actorID, ownerID) {
		return err
	}
	return nil
}

func requireNotSelf(actorID, subjectID uint, err error) error {
	if !IsNotSelf(actorID, subjectID) {
		return err
	}
	return nil
}
