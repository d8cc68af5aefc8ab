package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/zeromicro/go-zero/core/stores/redis"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/geb-labs/staking-snapshot/src/snapshot/config"
	"github.com/geb-labs/staking-snapshot/src/snapshot/model"
	"github.com/geb-labs/staking-snapshot/src/snapshot/snapshot"
	"github.com/geb-labs/staking-snapshot/src/utils"
)

func main() {
	startBlock := flag.Int64("start_block", 0, "block the debts and pool state are measured at")
	endBlock := flag.Int64("end_block", 0, "block the safe ownership is resolved at")
	csvOutput := flag.String("csv_output", "", "also export the snapshot records to a csv file")
	remotePasswdConfig := flag.String("remote_password_config", "", "fetch password from aws secretsmanager")
	flag.Parse()

	snapshotConfig := &config.Config{}
	content, err := ioutil.ReadFile("config/config.json")
	if err != nil {
		panic(err.Error())
	}
	err = json.Unmarshal(content, snapshotConfig)
	if err != nil {
		panic(err.Error())
	}
	if *remotePasswdConfig != "" {
		s, err := utils.GetMysqlSource(snapshotConfig.MysqlDataSource, *remotePasswdConfig)
		if err != nil {
			panic(err.Error())
		}
		snapshotConfig.MysqlDataSource = s
	}
	if *startBlock == 0 {
		*startBlock = snapshotConfig.StartBlock
	}
	if *endBlock == 0 {
		*endBlock = snapshotConfig.EndBlock
	}
	if *startBlock == 0 || *endBlock == 0 || *endBlock < *startBlock {
		panic(fmt.Sprintf("invalid block range %d-%d", *startBlock, *endBlock))
	}

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             60 * time.Second, // Slow SQL threshold
			LogLevel:                  logger.Silent,    // Log level
			IgnoreRecordNotFoundError: true,             // Ignore ErrRecordNotFound error for logger
			Colorful:                  false,            // Disable color
		},
	)
	db, err := gorm.Open(mysql.Open(snapshotConfig.MysqlDataSource), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		panic(err.Error())
	}

	balanceModel := model.NewLpBalanceModel(db, snapshotConfig.DbSuffix)
	poolModel := model.NewPoolStateModel(db, snapshotConfig.DbSuffix)
	safeModel := model.NewSafeModel(db, snapshotConfig.DbSuffix)
	ownerModel := model.NewSafeOwnerModel(db, snapshotConfig.DbSuffix)
	rateModel := model.NewRateModel(db, snapshotConfig.DbSuffix)

	var redisConn *redis.Redis
	if snapshotConfig.Redis.Host != "" {
		redisConn = redis.New(snapshotConfig.Redis.Host,
			snapshot.WithRedis(snapshotConfig.Redis.Type, snapshotConfig.Redis.Password))
	}
	exclusions := snapshot.NewExclusionList(redisConn, snapshotConfig.ExcludedAddresses)

	generator := snapshot.NewGenerator(
		snapshot.NewBalanceNormalizer(balanceModel, poolModel),
		snapshot.NewDebtNormalizer(safeModel, ownerModel, rateModel),
		exclusions,
	)

	startTime := time.Now()
	state, err := generator.ComputeInitialState(*startBlock, *endBlock)
	if err != nil {
		panic(err.Error())
	}
	fmt.Println("initial state computed in ", time.Since(startTime), " for ", len(state), " users")

	records := state.SortedRecords()
	commitment := utils.ComputeSnapshotCommitment(records)
	fmt.Printf("snapshot commitment is %x\n", commitment)

	tree, err := utils.NewSnapshotTree(snapshotConfig.TreeDB.Driver, snapshotConfig.TreeDB.Option.Addr)
	if err != nil {
		panic(err.Error())
	}
	root, err := snapshot.BuildSnapshotTree(tree, records)
	if err != nil {
		panic(err.Error())
	}
	fmt.Printf("snapshot tree root is %x\n", root)

	blob, err := utils.EncodeUserRecords(records)
	if err != nil {
		panic(err.Error())
	}
	snapshotModel := model.NewSnapshotModel(db, snapshotConfig.DbSuffix)
	err = snapshotModel.CreateSnapshotTable()
	if err != nil {
		panic(err.Error())
	}
	err = snapshotModel.CreateSnapshot(&model.Snapshot{
		StartBlock: *startBlock,
		EndBlock:   *endBlock,
		Commitment: hex.EncodeToString(commitment),
		TreeRoot:   hex.EncodeToString(root),
		UserCount:  int64(len(records)),
		UserData:   blob,
	})
	if err != nil {
		panic(err.Error())
	}
	fmt.Println("snapshot for blocks ", *startBlock, "-", *endBlock, " saved to db")

	if *csvOutput != "" {
		f, err := os.Create(*csvOutput)
		if err != nil {
			panic(err.Error())
		}
		defer f.Close()
		err = gocsv.MarshalFile(&records, f)
		if err != nil {
			panic(err.Error())
		}
		fmt.Println("snapshot records exported to ", *csvOutput)
	}
}
