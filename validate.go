package iref

import "fmt"

func validateReferences(refs []Reference, limits Limits, strictTypes bool) error {
	if len(refs) > limits.MaxReferences {
		return fmt.Errorf("%w: %d references, max %d", ErrLimitExceeded, len(refs), limits.MaxReferences)
	}
	for i, r := range refs {
		if r.Len() > limits.MaxTargetsPerReference {
			return fmt.Errorf("%w: reference %d (%s from %d) has %d to-items", ErrLimitExceeded, i, r.typ, r.fromID, r.Len())
		}
		if strictTypes && !isKnownReferenceType(r.typ) {
			return fmt.Errorf("%w: reference %d has unknown type %q", ErrUnexpectedBoxType, i, r.typ.String())
		}
	}
	return nil
}
