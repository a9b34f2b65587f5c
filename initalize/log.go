package initalize

import (
	"fmt"

	"cfbattle/configs"
	"cfbattle/log/zlog"
)

func InitLog(conf *configs.Config) {
	zlog.InitLog(conf)
}

func introduce() {
	fmt.Println(`
   ______ ______ ____        __  __  __
  / ____// ____// __ ) ____ _/ /_/ /_/ /__
 / /    / /_   / __  |/ __ '/ __/ __/ / _ \
/ /___ / __/  / /_/ // /_/ / /_/ /_/ /  __/
\____//_/    /_____/ \__,_/\__/\__/_/\___/`)
}
