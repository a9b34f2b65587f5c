package initalize

import (
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cfbattle/configs"
	"cfbattle/global"
	"cfbattle/log/zlog"
	"cfbattle/model"
)

// InitDataBase 初始化MySQL连接并迁移表结构
func InitDataBase(conf configs.Config) {
	gormLevel := logger.Warn
	if conf.App.Env == "dev" {
		gormLevel = logger.Info
	}
	db, err := gorm.Open(mysql.Open(conf.Mysql.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(gormLevel),
	})
	if err != nil {
		zlog.Errorf("连接数据库失败:%v", err)
		panic(err.Error())
	}
	sqlDB, err := db.DB()
	if err != nil {
		zlog.Errorf("获取数据库连接池失败:%v", err)
		panic(err.Error())
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err = model.MigrateTables(db); err != nil {
		zlog.Errorf("数据表迁移失败:%v", err)
		panic(err.Error())
	}
	global.DB = db
	zlog.Infof("数据库初始化完成")
}
