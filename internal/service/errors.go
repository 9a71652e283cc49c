package service

import "errors"

var (
	ErrVillageNotFound       = errors.New("village not found")
	ErrInvalidName           = errors.New("name must not be empty")
	ErrNotYourVillage        = errors.New("village does not belong to you")
	ErrCoordinateTaken       = errors.New("coordinates already occupied")
	ErrSlotOccupied          = errors.New("building slot already occupied")
	ErrBuildingNotFound      = errors.New("building not found")
	ErrInvalidBuildingType   = errors.New("invalid building type")
	ErrPrereqNotMet          = errors.New("building prerequisites not met")
	ErrMaxLevel              = errors.New("building already at maximum level")
	ErrAlreadyUpgrading      = errors.New("building is already upgrading")
	ErrCannotDemolish        = errors.New("main building cannot be demolished")
	ErrInsufficientResources = errors.New("not enough resources")
	ErrInvalidTroopType      = errors.New("invalid troop type")
	ErrInvalidTroopCount     = errors.New("troop count must be positive")
	ErrNotEnoughTroops       = errors.New("not enough troops in village")
	ErrOrderNotFound         = errors.New("training order not found")
	ErrInvalidMission        = errors.New("invalid mission")
	ErrTargetIsOwnVillage    = errors.New("cannot target your own village")
	ErrChiefRequired         = errors.New("conquest requires a chief unit")
	ErrNoTargetVillage       = errors.New("no village at target coordinates")
	ErrArmyNotFound          = errors.New("army not found")
	ErrArmyNotStationed      = errors.New("army is not stationed")
	ErrReportNotFound        = errors.New("report not found")
	ErrUserNotFound          = errors.New("user not found")
)
