package sync

import "github.com/tallyhq/tally/internal/client/models"

// Keyed is a record that can name its natural key: the domain value (or
// combination) identifying "the same logical record" across local and
// remote copies, independent of either side's assigned identifier.
type Keyed interface {
	models.Record
	Key() string
}

// MergeResult is the outcome of merging one domain's two record sets.
// Duplicates holds records set aside rather than merged: exact-timestamp
// ties and within-set key collisions. They are logged, never guessed at.
type MergeResult[T Keyed] struct {
	Merged     []T
	Duplicates []T

	LocalWins  int
	RemoteWins int
	LocalOnly  int
	RemoteOnly int
}

// SplitDuplicates partitions a single set into unique records and within-set
// duplicates. When several records share a key the most recently updated one
// is kept; the rest are returned for separate cleanup and are excluded from
// the merge.
func SplitDuplicates[T Keyed](items []T, key func(T) string) (unique []T, dups []T) {
	best := make(map[string]int, len(items))
	for i, item := range items {
		k := key(item)
		j, seen := best[k]
		if !seen {
			best[k] = i
			continue
		}
		if item.Meta().UpdatedAt > items[j].Meta().UpdatedAt {
			dups = append(dups, items[j])
			best[k] = i
		} else {
			dups = append(dups, item)
		}
	}
	unique = make([]T, 0, len(best))
	for i, item := range items {
		if best[key(item)] == i {
			unique = append(unique, item)
		}
	}
	return unique, dups
}

// Merge reconciles a local set against a remote set, keyed by the natural
// key. It is a pure function of its inputs: rerunning it with the same
// arguments yields the same output.
//
// Rules:
//   - no remote counterpart: the local record is kept as a local-only
//     addition (it will be created remotely on push);
//   - counterpart exists: the newer updatedAt wins. When the local copy
//     wins, the remote identifier is carried over onto it so the push
//     updates the existing document instead of creating a duplicate. When
//     the remote copy wins, the local id is carried as its back-reference.
//   - equal timestamps: the resident (remote) entry is kept and the
//     incoming local copy is set aside as a duplicate;
//   - remote-only records are added as-is.
//
// Both inputs must already be free of within-set duplicates
// (see SplitDuplicates).
func Merge[T Keyed](local, remote []T, key func(T) string) MergeResult[T] {
	var res MergeResult[T]

	byKey := make(map[string]T, len(remote))
	for _, r := range remote {
		byKey[key(r)] = r
	}

	consumed := make(map[string]bool, len(local))
	winners := make(map[string]T, len(remote)+len(local))
	for k, r := range byKey {
		winners[k] = r
	}

	for _, l := range local {
		k := key(l)
		r, ok := byKey[k]
		if !ok {
			res.LocalOnly++
			continue
		}
		consumed[k] = true
		switch {
		case l.Meta().UpdatedAt > r.Meta().UpdatedAt:
			// Local wins: inherit the remote identifier so the next push
			// targets the existing document.
			l.Meta().RemoteID = r.Meta().RemoteID
			winners[k] = l
			res.LocalWins++
		case l.Meta().UpdatedAt < r.Meta().UpdatedAt:
			// Remote wins: remember which local row it replaces.
			r.Meta().LocalID = l.Meta().ID
			res.RemoteWins++
		default:
			// Tie: keep the resident entry, set the incoming copy aside.
			res.Duplicates = append(res.Duplicates, l)
		}
	}

	// Deterministic output order: remote input order, then local-only
	// additions in local input order.
	for _, r := range remote {
		res.Merged = append(res.Merged, winners[key(r)])
	}
	for _, l := range local {
		k := key(l)
		if _, ok := byKey[k]; !ok {
			res.Merged = append(res.Merged, l)
		}
	}
	res.RemoteOnly = len(remote) - len(consumed)

	return res
}
