package main

import (
	"time"

	"github.com/nestboard/nestboard/config"
	"github.com/nestboard/nestboard/directory"
	"github.com/nestboard/nestboard/files"
	"github.com/nestboard/nestboard/models"
	"github.com/nestboard/nestboard/routes"
	"github.com/nestboard/nestboard/services"
	"github.com/nestboard/nestboard/store"
	"github.com/nestboard/nestboard/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.User{}, &models.Post{}, &models.Reply{}, &models.UploadedFile{})

	posts := store.NewPostStore(db)
	replies := store.NewReplyStore(db)
	postService := services.NewPostService(posts, utils.Sugar)
	replyService := services.NewReplyService(posts, replies, utils.Sugar)

	dir := directory.New(db,
		time.Duration(cfg.DirectoryTimeoutMS)*time.Millisecond,
		time.Duration(cfg.DirectorySummaryTTLS)*time.Second,
		utils.Sugar,
	)
	fileStore := files.New(db,
		cfg.UploadDir,
		cfg.UploadBaseURL,
		int64(cfg.UploadMaxSizeMB)<<20,
		time.Duration(cfg.UploadTTLHours)*time.Hour,
		utils.Sugar,
	)
	fileStore.StartReaper(time.Duration(cfg.UploadReaperIntervalM) * time.Minute)

	r := routes.SetupRouter(routes.Deps{
		DB:        db,
		Posts:     postService,
		Replies:   replyService,
		Directory: dir,
		Files:     fileStore,
	})

	utils.Sugar.Infof("starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.Serve(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
