package flags

import (
	"flag"
	"os"

	"cfbattle/global"
	"cfbattle/log/zlog"
	"cfbattle/model"
)

type Options struct {
	Config  string
	DB      bool
	Version bool
}

var Option Options

func Parse() {
	flag.StringVar(&Option.Config, "c", "config.yaml", "配置文件路径")
	flag.BoolVar(&Option.DB, "db", false, "执行数据库迁移后退出")
	flag.BoolVar(&Option.Version, "v", false, "显示版本")
	flag.Parse()
}

// Run 处理需要在初始化完成后执行的命令行参数
func Run() {
	if Option.DB {
		if err := model.MigrateTables(global.DB); err != nil {
			zlog.Errorf("数据库迁移失败:%v", err)
			os.Exit(1)
		}
		zlog.Infof("数据库迁移完成")
		os.Exit(0)
	}
}
