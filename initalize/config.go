package initalize

import (
	"path/filepath"

	"cfbattle/cmd/flags"
	"cfbattle/configs"
	"cfbattle/global"
	"cfbattle/log/zlog"
)

// InitConfig 加载配置文件，找不到时直接退出
func InitConfig() {
	path := flags.Option.Config
	if !filepath.IsAbs(path) {
		path = filepath.Join(global.Path, path)
	}
	conf, err := configs.Load(path)
	if err != nil {
		zlog.Errorf("加载配置文件失败:%v", err)
		panic(err.Error())
	}
	global.Config = conf
}
