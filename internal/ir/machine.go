package ir

// taggedTransition is a TransitionRecord paired with the machine that
// declared it, before Src/Event wildcards and Dst Enter/local refs are
// resolved against the frozen global state set.
type taggedTransition[C any] struct {
	machine MachineTag
	rec     TransitionRecord[C]
}

// localize fills in an empty Machine field with the owning machine's tag.
// Refs that already carry a Machine (cross-machine references such as the
// Exit(M) source form) are left untouched.
func localize(owner MachineTag, ref GlobalRef) GlobalRef {
	if ref.Machine == "" {
		ref.Machine = owner
	}
	return ref
}

// Assemble implements C3: it discovers every submachine transitively
// reachable from root via Enter destinations, tags and flattens all of
// their transitions into one ordered list, computes the combined global
// state set, resolves wildcards and Enter/local destinations against it,
// and returns the ready-to-dispatch Assembled machine.
//
// subs must include every machine reachable from root through an Enter
// destination; a reachable machine missing from subs is a structural
// error, not a panic.
func Assemble[C any](root MachineDef[C], subs ...MachineDef[C]) (*Assembled[C], error) {
	registry := map[MachineTag]MachineDef[C]{root.Tag(): root}
	for _, s := range subs {
		registry[s.Tag()] = s
	}

	var (
		order    []MachineTag
		visiting = map[MachineTag]bool{}
		visited  = map[MachineTag]bool{}
		tagged   []taggedTransition[C]
	)

	var discover func(tag MachineTag) error
	discover = func(tag MachineTag) error {
		if visited[tag] {
			return nil
		}
		if visiting[tag] {
			return newAssemblyError(tag, "cyclic submachine reference through %q", tag)
		}
		m, ok := registry[tag]
		if !ok {
			return newAssemblyError(tag, "submachine %q referenced via Enter but not supplied to Assemble", tag)
		}

		visiting[tag] = true
		order = append(order, tag)
		recs := m.Transitions()
		for _, r := range recs {
			tagged = append(tagged, taggedTransition[C]{machine: tag, rec: r})
		}
		for _, r := range recs {
			if r.Dst.Kind == DstEnter {
				if err := discover(r.Dst.Ref.Machine); err != nil {
					return err
				}
			}
		}
		visiting[tag] = false
		visited[tag] = true
		return nil
	}

	if err := discover(root.Tag()); err != nil {
		return nil, err
	}

	// Per-machine local concrete event ids, for resolving EventWildcard.
	localEvents := map[MachineTag][]EventID{}
	for _, t := range tagged {
		if t.rec.Event.Kind != EventConcrete {
			continue
		}
		for _, id := range t.rec.Event.IDs {
			if !containsEventID(localEvents[t.machine], id) {
				localEvents[t.machine] = append(localEvents[t.machine], id)
			}
		}
	}

	// GlobalStates: unique (Machine,StateID) pairs from concrete Src/Dst
	// refs, root's initial pinned first.
	var states []GlobalRef
	index := map[GlobalRef]int{}
	addState := func(ref GlobalRef) int {
		if i, ok := index[ref]; ok {
			return i
		}
		i := len(states)
		states = append(states, ref)
		index[ref] = i
		return i
	}

	initialRef := GlobalRef{Machine: root.Tag(), State: root.Initial()}
	addState(initialRef)

	resolveDst := func(owner MachineTag, d DstSpec) (GlobalRef, bool) {
		switch d.Kind {
		case DstConcrete:
			return localize(owner, d.Ref), true
		case DstEnter:
			target := registry[d.Ref.Machine]
			return GlobalRef{Machine: d.Ref.Machine, State: target.Initial()}, true
		default: // DstKeep, DstBypass: not a global state
			return GlobalRef{}, false
		}
	}

	for _, t := range tagged {
		if t.rec.Src.Kind == SrcConcrete {
			for _, ref := range t.rec.Src.Refs {
				addState(localize(t.machine, ref))
			}
		}
		if ref, ok := resolveDst(t.machine, t.rec.Dst); ok {
			addState(ref)
		}
	}

	// Validate that every explicit cross-machine reference (Src or Dst
	// carrying its own non-empty Machine field) names a machine that was
	// actually discovered, catching unknown destinations Enter-discovery
	// itself can't check.
	checkKnownMachine := func(owner MachineTag, ref GlobalRef) error {
		if ref.Machine == "" || ref.Machine == owner || visited[ref.Machine] {
			return nil
		}
		return newAssemblyError(owner, "reference to unknown machine %q", ref.Machine)
	}
	for _, t := range tagged {
		if t.rec.Src.Kind == SrcConcrete {
			for _, ref := range t.rec.Src.Refs {
				if err := checkKnownMachine(t.machine, ref); err != nil {
					return nil, err
				}
			}
		}
		if t.rec.Dst.Kind == DstConcrete {
			if err := checkKnownMachine(t.machine, t.rec.Dst.Ref); err != nil {
				return nil, err
			}
		}
	}

	// EventIDs: union of every machine's local concrete ids, in discovery
	// then declaration order.
	var eventIDs []EventID
	seenEvent := map[EventID]bool{}
	for _, tag := range order {
		for _, id := range localEvents[tag] {
			if !seenEvent[id] {
				seenEvent[id] = true
				eventIDs = append(eventIDs, id)
			}
		}
	}

	// Resolve each tagged record into a ResolvedTransition.
	resolved := make([]ResolvedTransition[C], 0, len(tagged))
	for _, t := range tagged {
		rt := ResolvedTransition[C]{
			Machine: t.machine,
			Guards:  t.rec.Guards,
			Actions: t.rec.Actions,
		}

		switch t.rec.Src.Kind {
		case SrcWildcard:
			for g, s := range states {
				if s.Machine == t.machine {
					rt.SrcIndex = append(rt.SrcIndex, g)
				}
			}
		default:
			for _, ref := range t.rec.Src.Refs {
				rt.SrcIndex = append(rt.SrcIndex, index[localize(t.machine, ref)])
			}
		}

		switch t.rec.Event.Kind {
		case EventWildcard:
			rt.EventIDs = append(rt.EventIDs, localEvents[t.machine]...)
		default:
			rt.EventIDs = t.rec.Event.IDs
		}

		switch t.rec.Dst.Kind {
		case DstKeep:
			rt.DstKind = DstKeep
		case DstBypass:
			rt.DstKind = DstBypass
		default:
			ref, _ := resolveDst(t.machine, t.rec.Dst)
			rt.DstKind = DstConcrete
			rt.DstIndex = index[ref]
		}

		resolved = append(resolved, rt)
	}

	return &Assembled[C]{
		Transitions:  resolved,
		States:       states,
		StateIndex:   index,
		InitialIndex: index[initialRef],
		EventIDs:     eventIDs,
	}, nil
}
