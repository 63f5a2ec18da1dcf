package di

import "github.com/samber/do/v2"

// RegisterSingletons registers all service providers as singletons.
// Services are registered in dependency order:
//  1. Config (no dependencies)
//  2. Logger (depends on Config)
//  3. Remote (depends on Config, Logger)
//  4. Cache (depends on Remote)
//  5. Local (depends on Config)
//  6. Netwatch (depends on Config)
//  7. Store (depends on Config)
//  8. Meals (depends on Cache, Local, Netwatch, Store)
//  9. Profile (depends on Cache, Local, Netwatch, Store)
//  10. RateLimit (depends on Remote, Config).
func RegisterSingletons(i do.Injector) {
	do.Provide(i, NewConfig)
	do.Provide(i, NewLogger)
	do.Provide(i, NewRemote)
	do.Provide(i, NewCache)
	do.Provide(i, NewLocal)
	do.Provide(i, NewNetwatch)
	do.Provide(i, NewStore)
	do.Provide(i, NewMeals)
	do.Provide(i, NewProfile)
	do.Provide(i, NewRateLimit)
}
