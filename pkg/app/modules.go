package app

// Compiled-in modules. Importing a module package registers it with core.
import (
	_ "github.com/flemzord/sigma/internal/gateway"
	_ "github.com/flemzord/sigma/modules/channel/telegram"
	_ "github.com/flemzord/sigma/modules/memory/sqlite"
	_ "github.com/flemzord/sigma/modules/provider/gemini"
)
