package store

import (
	"context"
	"strings"

	"github.com/vektorlab/multivac/internal/models"
)

// AddAction stores or replaces an action definition.
func (s *Store) AddAction(ctx context.Context, action *models.Action) error {
	return s.rdb.HSet(ctx, actionKey(action.Name), action.ToMap()).Err()
}

// GetAction returns an action by name, or nil when undefined.
func (s *Store) GetAction(ctx context.Context, name string) (*models.Action, error) {
	m, err := s.rdb.HGetAll(ctx, actionKey(name)).Result()
	if err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, nil
	}
	return models.ActionFromMap(m), nil
}

// GetActions returns every configured action.
func (s *Store) GetActions(ctx context.Context) ([]*models.Action, error) {
	keys, err := s.rdb.Keys(ctx, actionKey("*")).Result()
	if err != nil {
		return nil, err
	}

	actions := make([]*models.Action, 0, len(keys))
	for _, k := range keys {
		m, err := s.rdb.HGetAll(ctx, k).Result()
		if err != nil {
			return nil, err
		}
		if len(m) == 0 {
			continue
		}
		actions = append(actions, models.ActionFromMap(m))
	}
	return actions, nil
}

// PurgeActions deletes the entire action catalog. Used together with
// AddAction to replace the catalog on a config reload.
func (s *Store) PurgeActions(ctx context.Context) error {
	return s.purge(ctx, actionKey("*"))
}

// AddGroup stores or replaces a group's member list.
func (s *Store) AddGroup(ctx context.Context, name string, members []string) error {
	key := groupKey(name)
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return err
	}
	for _, m := range members {
		if err := s.rdb.LPush(ctx, key, m).Err(); err != nil {
			return err
		}
	}
	return nil
}

// GetGroup returns the members of a group. Unknown groups are empty.
func (s *Store) GetGroup(ctx context.Context, name string) ([]string, error) {
	return s.rdb.LRange(ctx, groupKey(name), 0, -1).Result()
}

// GetGroups returns every configured group keyed by name.
func (s *Store) GetGroups(ctx context.Context) (map[string][]string, error) {
	keys, err := s.rdb.Keys(ctx, groupKey("*")).Result()
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]string, len(keys))
	for _, k := range keys {
		name := strings.TrimPrefix(k, groupPrefix+":")
		members, err := s.GetGroup(ctx, name)
		if err != nil {
			return nil, err
		}
		groups[name] = members
	}
	return groups, nil
}

// PurgeGroups deletes every group.
func (s *Store) PurgeGroups(ctx context.Context) error {
	return s.purge(ctx, groupKey("*"))
}

// memberOfAny reports whether user belongs to at least one of the listed
// groups. The distinguished group "all" always matches.
func (s *Store) memberOfAny(ctx context.Context, user string, groups []string) (bool, error) {
	for _, g := range groups {
		if strings.TrimSpace(g) == models.DefaultGroup {
			return true, nil
		}
	}
	for _, g := range groups {
		members, err := s.GetGroup(ctx, strings.TrimSpace(g))
		if err != nil {
			return false, err
		}
		for _, m := range members {
			if m == user {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *Store) purge(ctx context.Context, pattern string) error {
	keys, err := s.rdb.Keys(ctx, pattern).Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}
