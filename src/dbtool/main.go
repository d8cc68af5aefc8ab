package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gocarina/gocsv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/geb-labs/staking-snapshot/src/dbtool/config"
	"github.com/geb-labs/staking-snapshot/src/snapshot/model"
	"github.com/geb-labs/staking-snapshot/src/utils"
)

func main() {
	dbtoolConfig := &config.Config{}
	content, err := ioutil.ReadFile("config/config.json")
	if err != nil {
		panic(err.Error())
	}
	err = json.Unmarshal(content, dbtoolConfig)
	if err != nil {
		panic(err.Error())
	}

	deleteAllData := flag.Bool("delete_all", false, "delete tree kv store and mysql data")
	onlyFlushTreedb := flag.Bool("only_flush_treedb", false, "only flush the tree kv store")
	checkSnapshot := flag.Bool("check_snapshot", false, "print the latest stored snapshot")
	importDir := flag.String("import_dir", "", "load source csv files from a directory into mysql")
	remotePasswdConfig := flag.String("remote_password_config", "", "fetch password from aws secretsmanager")

	flag.Parse()

	if *remotePasswdConfig != "" {
		s, err := utils.GetMysqlSource(dbtoolConfig.MysqlDataSource, *remotePasswdConfig)
		if err != nil {
			panic(err.Error())
		}
		dbtoolConfig.MysqlDataSource = s
	}

	if *deleteAllData {
		db, err := gorm.Open(mysql.Open(dbtoolConfig.MysqlDataSource))
		if err != nil {
			panic(err.Error())
		}
		balanceModel := model.NewLpBalanceModel(db, dbtoolConfig.DbSuffix)
		err = balanceModel.DropLpBalanceTable()
		if err != nil {
			fmt.Println("drop lp balance table failed")
			panic(err.Error())
		}
		fmt.Println("drop lp balance table successfully")

		safeModel := model.NewSafeModel(db, dbtoolConfig.DbSuffix)
		err = safeModel.DropSafeTable()
		if err != nil {
			fmt.Println("drop safe table failed")
			panic(err.Error())
		}
		fmt.Println("drop safe table successfully")

		ownerModel := model.NewSafeOwnerModel(db, dbtoolConfig.DbSuffix)
		err = ownerModel.DropSafeOwnerTable()
		if err != nil {
			fmt.Println("drop safe owner table failed")
			panic(err.Error())
		}
		fmt.Println("drop safe owner table successfully")

		poolModel := model.NewPoolStateModel(db, dbtoolConfig.DbSuffix)
		err = poolModel.DropPoolStateTable()
		if err != nil {
			fmt.Println("drop pool state table failed")
			panic(err.Error())
		}
		fmt.Println("drop pool state table successfully")

		rateModel := model.NewRateModel(db, dbtoolConfig.DbSuffix)
		err = rateModel.DropRateTable()
		if err != nil {
			fmt.Println("drop rate table failed")
			panic(err.Error())
		}
		fmt.Println("drop rate table successfully")

		snapshotModel := model.NewSnapshotModel(db, dbtoolConfig.DbSuffix)
		err = snapshotModel.DropSnapshotTable()
		if err != nil {
			fmt.Println("drop snapshot table failed")
			panic(err.Error())
		}
		fmt.Println("drop snapshot table successfully")
	}

	if (*deleteAllData || *onlyFlushTreedb) && dbtoolConfig.TreeDB.Driver == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:            dbtoolConfig.TreeDB.Option.Addr,
			PoolSize:        500,
			MaxRetries:      5,
			MinRetryBackoff: 8 * time.Millisecond,
			MaxRetryBackoff: 512 * time.Millisecond,
			DialTimeout:     10 * time.Second,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			PoolTimeout:     15 * time.Second,
			IdleTimeout:     5 * time.Minute,
		})
		client.FlushAll(context.Background())
		fmt.Println("tree kv store drop successfully")
	}

	if *importDir != "" {
		db, err := gorm.Open(mysql.Open(dbtoolConfig.MysqlDataSource))
		if err != nil {
			panic(err.Error())
		}
		ImportSourceData(db, dbtoolConfig.DbSuffix, *importDir)
	}

	if *checkSnapshot {
		db, err := gorm.Open(mysql.Open(dbtoolConfig.MysqlDataSource))
		if err != nil {
			panic(err.Error())
		}
		snapshotModel := model.NewSnapshotModel(db, dbtoolConfig.DbSuffix)
		stored, err := snapshotModel.GetLatestSnapshot()
		if err != nil {
			panic(err.Error())
		}
		records, err := utils.DecodeUserRecords(stored.UserData)
		if err != nil {
			panic(err.Error())
		}
		fmt.Println("latest snapshot covers blocks ", stored.StartBlock, "-", stored.EndBlock)
		fmt.Println("commitment: ", stored.Commitment)
		fmt.Println("tree root: ", stored.TreeRoot)
		fmt.Println("user count: ", stored.UserCount, " decoded records: ", len(records))
	}
}

// ImportSourceData loads the block-indexed source tables from csv files named
// lp_balances.csv, safes.csv, safe_owners.csv, pool_states.csv, rates.csv.
// Missing files are skipped so partial reloads work.
func ImportSourceData(db *gorm.DB, suffix string, dir string) {
	balanceModel := model.NewLpBalanceModel(db, suffix)
	safeModel := model.NewSafeModel(db, suffix)
	ownerModel := model.NewSafeOwnerModel(db, suffix)
	poolModel := model.NewPoolStateModel(db, suffix)
	rateModel := model.NewRateModel(db, suffix)

	var balances []model.LpBalance
	if readCsvFile(filepath.Join(dir, "lp_balances.csv"), &balances) {
		if err := balanceModel.CreateLpBalanceTable(); err != nil {
			panic(err.Error())
		}
		if err := balanceModel.CreateLpBalances(balances); err != nil {
			panic(err.Error())
		}
		fmt.Println("imported ", len(balances), " lp balance rows")
	}

	var safes []model.Safe
	if readCsvFile(filepath.Join(dir, "safes.csv"), &safes) {
		if err := safeModel.CreateSafeTable(); err != nil {
			panic(err.Error())
		}
		if err := safeModel.CreateSafes(safes); err != nil {
			panic(err.Error())
		}
		fmt.Println("imported ", len(safes), " safe rows")
	}

	var owners []model.SafeOwner
	if readCsvFile(filepath.Join(dir, "safe_owners.csv"), &owners) {
		if err := ownerModel.CreateSafeOwnerTable(); err != nil {
			panic(err.Error())
		}
		if err := ownerModel.CreateSafeOwners(owners); err != nil {
			panic(err.Error())
		}
		fmt.Println("imported ", len(owners), " safe owner rows")
	}

	var states []model.PoolState
	if readCsvFile(filepath.Join(dir, "pool_states.csv"), &states) {
		if err := poolModel.CreatePoolStateTable(); err != nil {
			panic(err.Error())
		}
		if err := poolModel.CreatePoolStates(states); err != nil {
			panic(err.Error())
		}
		fmt.Println("imported ", len(states), " pool state rows")
	}

	var rates []model.AccumulatedRate
	if readCsvFile(filepath.Join(dir, "rates.csv"), &rates) {
		if err := rateModel.CreateRateTable(); err != nil {
			panic(err.Error())
		}
		if err := rateModel.CreateRates(rates); err != nil {
			panic(err.Error())
		}
		fmt.Println("imported ", len(rates), " rate rows")
	}
}

func readCsvFile(name string, out interface{}) bool {
	f, err := os.Open(name)
	if err != nil {
		fmt.Println("skip ", name, ": ", err.Error())
		return false
	}
	defer f.Close()
	err = gocsv.UnmarshalFile(f, out)
	if err != nil {
		panic(err.Error())
	}
	return true
}
