package dispatch

// Resolver maps friendly channel names from the configuration, like
// "welcome" or "mod-queue", to platform channel ids.
// The mapping is fixed for the lifetime of the process; changing it
// means reloading the configuration and rebuilding the resolver
type Resolver struct {
	aliases map[string]string
}

// NewResolver copies the alias mapping so later mutation of the input
// cannot change where messages go
func NewResolver(aliases map[string]string) Resolver {
	copied := make(map[string]string, len(aliases))
	for alias, id := range aliases {
		copied[alias] = id
	}
	return Resolver{aliases: copied}
}

// Resolve returns the channel id behind an alias
func (r Resolver) Resolve(alias string) (string, error) {
	id, ok := r.aliases[alias]
	if !ok {
		return "", &UnknownAliasError{Alias: alias}
	}
	return id, nil
}
