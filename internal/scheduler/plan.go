package scheduler

import "envrun/internal/domain"

// Group partitions assignments by environment. Files keep their input
// order within a group; seen lists environments by first appearance.
func Group(assignments []domain.Assignment) (groups map[string][]string, seen []string) {
	groups = make(map[string][]string)
	for _, a := range assignments {
		if _, ok := groups[a.Environment]; !ok {
			seen = append(seen, a.Environment)
		}
		groups[a.Environment] = append(groups[a.Environment], a.File)
	}
	return groups, seen
}

// Order returns the execution order of the environments in seen: builtins
// first in their canonical order, then the rest in first-seen order.
func Order(builtins, seen []string) []string {
	present := make(map[string]bool, len(seen))
	for _, env := range seen {
		present[env] = true
	}

	ordered := make([]string, 0, len(seen))
	known := make(map[string]bool, len(builtins))
	for _, env := range builtins {
		known[env] = true
		if present[env] {
			ordered = append(ordered, env)
		}
	}
	for _, env := range seen {
		if !known[env] {
			ordered = append(ordered, env)
		}
	}
	return ordered
}

// Plan groups assignments and orders the groups for execution.
func Plan(assignments []domain.Assignment, builtins []string) []domain.Group {
	groups, seen := Group(assignments)
	plan := make([]domain.Group, 0, len(groups))
	for _, env := range Order(builtins, seen) {
		files := groups[env]
		if len(files) == 0 {
			continue
		}
		plan = append(plan, domain.Group{Environment: env, Files: files})
	}
	return plan
}
